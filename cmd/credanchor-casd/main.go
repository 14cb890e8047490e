// credanchor-casd serves an artifact archive over gRPC so issuing hosts can
// push receipts and certificates to a remote store.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"credanchor.io/anchor/storage/archivecfg"
	"credanchor.io/anchor/storage/grpccas"
)

func main() {
	fs := flag.NewFlagSet("credanchor-casd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	archiveSpec := fs.String("archive", "", "backing archive spec (directory path or localfs:<dir>)")

	_ = fs.Parse(os.Args[1:])
	if *archiveSpec == "" {
		fmt.Fprintln(os.Stderr, "missing --archive")
		os.Exit(2)
	}

	archive, err := archivecfg.Open(*archiveSpec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer archive.Close()

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpccas.RegisterCASServer(s, &grpccas.Server{CAS: archive.CAS})

	fmt.Fprintf(os.Stderr, "credanchor-casd listening on %s (archive=%s)\n", lis.Addr().String(), *archiveSpec)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
