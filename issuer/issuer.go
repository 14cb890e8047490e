// Package issuer drives a batch of credentials through the anchoring
// pipeline: validate, hash, commit, cost, assemble, sign, broadcast, and emit
// per-credential receipts.
//
// The pipeline is all-or-nothing up to broadcast: any failure before the
// transaction is submitted aborts the whole batch with nothing issued. After
// broadcast the anchor exists on-chain and cannot be rolled back, so artifact
// persistence failures are reported per credential and are retryable without
// a new transaction.
package issuer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/wire"
	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"credanchor.io/anchor/cert"
	"credanchor.io/anchor/chain"
	"credanchor.io/anchor/merkle"
	"credanchor.io/anchor/storage"
	"credanchor.io/anchor/txbuild"
)

// Config assembles the collaborators of a BatchOrchestrator. ChainParams,
// Cost, Hasher, the three addresses, and the three chain interfaces are
// required; the rest defaults.
type Config struct {
	ChainParams *chaincfg.Params
	Cost        txbuild.CostConstants

	// Hasher turns credentials into commitment leaves. Its hash function is
	// also used for interior tree nodes.
	Hasher *cert.LeafHasher

	// Validator runs per credential before hashing. Nil selects
	// cert.ValidateBasic.
	Validator cert.Validator

	// IssuingAddress funds the batch and receives nothing back directly.
	IssuingAddress string
	// GlobalRevocationAddress receives the batch-wide revocation output.
	GlobalRevocationAddress string
	// ChangeAddress receives input minus total. Empty defaults to
	// IssuingAddress.
	ChangeAddress string

	UTXOs       chain.UTXOSource
	Signer      chain.Signer
	Broadcaster chain.Broadcaster

	// Store, when non-nil, archives every receipt and certificate plus the
	// batch index.
	Store storage.CAS
	// OutDir, when non-empty, mirrors the artifacts to the filesystem under
	// OutDir/<batchID>/.
	OutDir string

	// HashWorkers bounds the canonicalization/hashing fan-out. Zero or
	// negative selects the CPU count.
	HashWorkers int

	Log slog.Logger
}

// BatchOrchestrator issues batches. Safe for sequential reuse; one batch runs
// at a time.
type BatchOrchestrator struct {
	cfg Config
	log slog.Logger
}

// New validates cfg and returns an orchestrator.
func New(cfg Config) (*BatchOrchestrator, error) {
	if cfg.ChainParams == nil {
		return nil, errors.New("issuer: chain params are required")
	}
	if cfg.Hasher == nil {
		return nil, errors.New("issuer: leaf hasher is required")
	}
	if cfg.IssuingAddress == "" {
		return nil, errors.New("issuer: issuing address is required")
	}
	if cfg.GlobalRevocationAddress == "" {
		return nil, errors.New("issuer: global revocation address is required")
	}
	if cfg.UTXOs == nil || cfg.Signer == nil || cfg.Broadcaster == nil {
		return nil, errors.New("issuer: utxo source, signer, and broadcaster are required")
	}
	if cfg.Validator == nil {
		cfg.Validator = cert.ValidateBasic
	}
	if cfg.ChangeAddress == "" {
		cfg.ChangeAddress = cfg.IssuingAddress
	}
	if cfg.HashWorkers <= 0 {
		cfg.HashWorkers = runtime.NumCPU()
	}
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	return &BatchOrchestrator{cfg: cfg, log: log}, nil
}

// Result is the outcome of one issued batch. Receipts are indexed by the
// credential's position in the input slice.
type Result struct {
	BatchID    string
	MerkleRoot []byte
	TxID       chainhash.Hash
	Tx         *wire.MsgTx
	Estimate   txbuild.Estimate
	Receipts   []*Receipt

	// Artifacts holds the persisted form of each credential's receipt and
	// certificate. Entries with a non-nil Err failed to persist; the batch is
	// still anchored and RetryPersist can be called again.
	Artifacts []CredentialArtifacts
	IndexErr  error
}

// PersistFailed reports whether any artifact is still unpersisted.
func (r *Result) PersistFailed() bool {
	if r.IndexErr != nil {
		return true
	}
	for i := range r.Artifacts {
		if r.Artifacts[i].Err != nil {
			return true
		}
	}
	return false
}

// IssueBatch anchors creds in order and returns the batch result.
//
// batchID names the persisted artifacts; empty generates a UTC timestamp id.
// An error return means nothing was broadcast. Persistence failures after
// broadcast never surface as an error here; inspect Result.PersistFailed.
func (o *BatchOrchestrator) IssueBatch(ctx context.Context, batchID string, creds []*cert.Credential) (*Result, error) {
	if len(creds) == 0 {
		return nil, merkle.ErrEmptyBatch
	}
	if batchID == "" {
		batchID = time.Now().UTC().Format("20060102_150405")
	}
	o.log.Infof("issuing batch %s: %d credentials", batchID, len(creds))

	for _, c := range creds {
		if err := o.cfg.Validator(c); err != nil {
			return nil, fmt.Errorf("issuer: validation failed: %w", err)
		}
	}

	leaves, err := o.hashAll(ctx, creds)
	if err != nil {
		return nil, err
	}

	tree := merkle.NewTree(o.cfg.Hasher.Hash())
	for i, leaf := range leaves {
		idx, err := tree.AddLeaf(leaf)
		if err != nil {
			return nil, err
		}
		if idx != i {
			return nil, fmt.Errorf("issuer: leaf index %d assigned to credential %d", idx, i)
		}
	}
	root, err := tree.Build()
	if err != nil {
		return nil, err
	}
	o.log.Debugf("batch %s: merkle root %x", batchID, root)

	proofs := make([][]merkle.ProofEntry, len(creds))
	for i := range creds {
		p, err := tree.Proof(i)
		if err != nil {
			return nil, err
		}
		if !merkle.VerifyProof(leaves[i], p, root, o.cfg.Hasher.Hash()) {
			return nil, fmt.Errorf("issuer: proof for credential %d does not verify", i)
		}
		proofs[i] = p
	}

	recipients := make([]txbuild.Recipient, len(creds))
	revocations := 0
	for i, c := range creds {
		recipients[i] = txbuild.Recipient{
			Address:           c.RecipientAddress,
			RevocationAddress: c.RevocationAddress,
		}
		if c.RevocationAddress != "" {
			revocations++
		}
	}
	est, err := txbuild.EstimateCost(len(creds), revocations, o.cfg.Cost)
	if err != nil {
		return nil, err
	}
	o.log.Debugf("batch %s: %d outputs, total %v", batchID, est.NumOutputs, est.Total)

	utxos, err := o.cfg.UTXOs.SpendableOutputs(ctx, o.cfg.IssuingAddress)
	if err != nil {
		return nil, fmt.Errorf("issuer: listing spendable outputs: %w", err)
	}
	input, err := chain.SelectInput(utxos)
	if err != nil {
		return nil, err
	}

	outs, err := txbuild.AssembleOutputs(o.cfg.ChainParams, recipients,
		o.cfg.GlobalRevocationAddress, o.cfg.ChangeAddress, root, input.Value, est)
	if err != nil {
		return nil, err
	}
	utx, err := txbuild.Assemble(input, outs, root)
	if err != nil {
		return nil, err
	}

	signed, err := o.cfg.Signer.Sign(ctx, utx)
	if err != nil {
		return nil, fmt.Errorf("issuer: signing: %w", err)
	}

	txid, err := o.cfg.Broadcaster.Broadcast(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("issuer: broadcast: %w", err)
	}
	o.log.Infof("batch %s anchored in tx %s", batchID, txid)

	// The anchor is on-chain. From here on nothing may abort the batch.
	res := &Result{
		BatchID:    batchID,
		MerkleRoot: root,
		TxID:       *txid,
		Tx:         signed,
		Estimate:   est,
		Receipts:   make([]*Receipt, len(creds)),
	}
	rootHex := hex.EncodeToString(root)
	for i := range creds {
		res.Receipts[i] = &Receipt{
			Proof:      proofs[i],
			MerkleRoot: rootHex,
			TxID:       txid.String(),
		}
	}

	o.persistBatch(res, creds)
	return res, nil
}

// hashAll canonicalizes and hashes every credential with a bounded worker
// pool. Results land at the credential's own index regardless of completion
// order.
func (o *BatchOrchestrator) hashAll(ctx context.Context, creds []*cert.Credential) ([][]byte, error) {
	leaves := make([][]byte, len(creds))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.HashWorkers)
	for i, c := range creds {
		i, c := i, c
		g.Go(func() error {
			leaf, err := o.cfg.Hasher.HashCredential(c)
			if err != nil {
				return fmt.Errorf("issuer: hashing %s: %w", c.ID, err)
			}
			leaves[i] = leaf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return leaves, nil
}
