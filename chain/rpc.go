package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/rpcclient/v8"
	"github.com/decred/dcrd/wire"
	"github.com/decred/slog"

	"credanchor.io/anchor/txbuild"
)

// RPCConfig locates the wallet-enabled RPC endpoint used for UTXO listing and
// broadcast.
type RPCConfig struct {
	Host string
	User string
	Pass string
	// CertPath is the TLS certificate of the RPC server; empty disables TLS
	// (simnet/testing only).
	CertPath string
}

// RPCNode is a UTXOSource and Broadcaster backed by a dcrwallet/dcrd RPC
// connection.
type RPCNode struct {
	c   *rpcclient.Client
	log slog.Logger
}

var _ UTXOSource = (*RPCNode)(nil)
var _ Broadcaster = (*RPCNode)(nil)

// NewRPCNode dials the RPC endpoint in HTTP POST mode. A nil logger disables
// logging.
func NewRPCNode(cfg RPCConfig, log slog.Logger) (*RPCNode, error) {
	if log == nil {
		log = slog.Disabled
	}
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   cfg.CertPath == "",
	}
	if cfg.CertPath != "" {
		pem, err := os.ReadFile(cfg.CertPath)
		if err != nil {
			return nil, fmt.Errorf("chain: read rpc cert: %w", err)
		}
		connCfg.Certificates = pem
	}
	c, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: rpc dial: %w", err)
	}
	return &RPCNode{c: c, log: log}, nil
}

// Shutdown tears down the RPC connection.
func (n *RPCNode) Shutdown() { n.c.Shutdown() }

// listUnspentResult is the subset of the wallet's listunspent reply the input
// selector needs. Decoded from a raw request so this package does not depend
// on wallet RPC type modules.
type listUnspentResult struct {
	TxID    string  `json:"txid"`
	Vout    uint32  `json:"vout"`
	Tree    int8    `json:"tree"`
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
	Spendable bool  `json:"spendable"`
}

// SpendableOutputs lists the unspent outputs paying address, in the wallet's
// reply order. The wallet orders listunspent deterministically, which the
// issuing core relies on when selecting the last element.
func (n *RPCNode) SpendableOutputs(ctx context.Context, address string) ([]txbuild.SpendableInput, error) {
	params := make([]json.RawMessage, 3)
	for i, v := range []any{1, 9999999, []string{address}} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		params[i] = b
	}
	reply, err := n.c.RawRequest(ctx, "listunspent", params)
	if err != nil {
		return nil, fmt.Errorf("chain: listunspent: %w", err)
	}
	var results []listUnspentResult
	if err := json.Unmarshal(reply, &results); err != nil {
		return nil, fmt.Errorf("chain: decode listunspent: %w", err)
	}

	utxos := make([]txbuild.SpendableInput, 0, len(results))
	for _, r := range results {
		if !r.Spendable {
			continue
		}
		hash, err := chainhash.NewHashFromStr(r.TxID)
		if err != nil {
			return nil, fmt.Errorf("chain: bad txid %q: %w", r.TxID, err)
		}
		amt, err := dcrutil.NewAmount(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("chain: bad amount %v: %w", r.Amount, err)
		}
		utxos = append(utxos, txbuild.SpendableInput{
			TxHash:  *hash,
			Vout:    r.Vout,
			Tree:    r.Tree,
			Value:   amt,
			Address: r.Address,
		})
	}
	n.log.Debugf("chain: %d spendable outputs at %s", len(utxos), address)
	return utxos, nil
}

// Broadcast submits tx and returns its hash.
func (n *RPCNode) Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error) {
	hash, err := n.c.SendRawTransaction(ctx, tx, false)
	if err != nil {
		return nil, fmt.Errorf("chain: broadcast: %w", err)
	}
	n.log.Infof("chain: broadcast %s", hash)
	return hash, nil
}
