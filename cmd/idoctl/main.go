// Command idoctl provides CLI tools for interacting with a launchpad daemon.
//
// # Commands
//
// keygen: Generate an Ed25519 signing key.
//
//	idoctl keygen
//
// create: Open a new sale window owned by the signing key.
//
//	idoctl create --url=http://localhost:8080 --key=<hex> --token-ref=0x01 --start=2026-09-01T00:00:00Z --end=2026-09-08T00:00:00Z
//
// contribute: Submit an opaque encrypted contribution payload.
//
//	idoctl contribute --url=http://localhost:8080 --key=<hex> --sale=0 --payload=0xdeadbeef
//
// finalize / claim / pause / resume / transfer-owner: Owner and participant
// transitions; status and events: read-only queries.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/CabinBranis/fhe-ido-launchpad/client"
	"github.com/CabinBranis/fhe-ido-launchpad/cmd/common"
	"github.com/CabinBranis/fhe-ido-launchpad/identity"
	"github.com/CabinBranis/fhe-ido-launchpad/ledger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "keygen":
		err = runKeygen()
	case "create":
		err = runCreate(args)
	case "pause":
		err = runSetActive(args, false)
	case "resume":
		err = runSetActive(args, true)
	case "transfer-owner":
		err = runTransferOwner(args)
	case "contribute":
		err = runContribute(args)
	case "finalize":
		err = runFinalize(args)
	case "claim":
		err = runClaim(args)
	case "status":
		err = runStatus(args)
	case "events":
		err = runEvents(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`idoctl - CLI tools for the confidential IDO launchpad

Usage:
  idoctl <command> [options]

Commands:
  keygen          Generate an Ed25519 signing key
  create          Open a new sale window
  pause           Pause a sale (owner)
  resume          Resume a paused sale (owner)
  transfer-owner  Transfer sale ownership (owner)
  contribute      Submit an encrypted contribution payload
  finalize        Finalize a sale after its window closes (owner)
  claim           Claim an encrypted allocation payload
  status          Show a sale's record and aggregates
  events          Dump the event log

Common options:
  --url   Daemon base URL (default http://localhost:8080)
  --key   Ed25519 signing key hex (generated if empty)`)
}

// newClient builds a signing client from the shared flags.
func newClient(url, keyHex string) (*client.Client, error) {
	key, err := common.LoadOrGenerateSigningKey(keyHex)
	if err != nil {
		return nil, err
	}
	if keyHex == "" {
		fmt.Fprintf(os.Stderr, "Generated signing key: %s\n", hex.EncodeToString(key.Bytes()))
	}
	return client.New(url, key), nil
}

func parsePayload(raw string) (ledger.Payload, error) {
	raw = strings.TrimPrefix(raw, "0x")
	data, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid payload hex: %w", err)
	}
	return ledger.NewPayload(data), nil
}

func runKeygen() error {
	principal, key, err := identity.GenerateKeyPair()
	if err != nil {
		return err
	}
	fmt.Printf("Signing key: %s\n", hex.EncodeToString(key.Bytes()))
	fmt.Printf("Principal:   %s\n", principal.String())
	return nil
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	keyHex := fs.String("key", "", "Signing key hex")
	tokenRef := fs.String("token-ref", "", "Opaque token descriptor hex")
	startStr := fs.String("start", "", "Window start (RFC 3339)")
	endStr := fs.String("end", "", "Window end (RFC 3339)")
	fs.Parse(args)

	start, err := time.Parse(time.RFC3339, *startStr)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, *endStr)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	ref, err := parsePayload(*tokenRef)
	if err != nil {
		return err
	}

	c, err := newClient(*url, *keyHex)
	if err != nil {
		return err
	}

	id, err := c.CreateSale(context.Background(), ref, start, end)
	if err != nil {
		return err
	}
	fmt.Printf("Created sale %d (owner %s)\n", id, c.Principal().String())
	return nil
}

func runSetActive(args []string, active bool) error {
	fs := flag.NewFlagSet("set-active", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	keyHex := fs.String("key", "", "Signing key hex")
	sale := fs.Uint64("sale", 0, "Sale id")
	fs.Parse(args)

	c, err := newClient(*url, *keyHex)
	if err != nil {
		return err
	}

	if err := c.SetSaleActive(context.Background(), ledger.SaleID(*sale), active); err != nil {
		return err
	}
	fmt.Printf("Sale %d active=%v\n", *sale, active)
	return nil
}

func runTransferOwner(args []string) error {
	fs := flag.NewFlagSet("transfer-owner", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	keyHex := fs.String("key", "", "Signing key hex")
	sale := fs.Uint64("sale", 0, "Sale id")
	newOwner := fs.String("new-owner", "", "New owner principal hex")
	fs.Parse(args)

	owner, err := identity.NewPrincipalFromString(*newOwner)
	if err != nil {
		return fmt.Errorf("invalid --new-owner: %w", err)
	}

	c, err := newClient(*url, *keyHex)
	if err != nil {
		return err
	}

	if err := c.TransferSaleOwnership(context.Background(), ledger.SaleID(*sale), owner); err != nil {
		return err
	}
	fmt.Printf("Sale %d transferred to %s\n", *sale, owner.String())
	return nil
}

func runContribute(args []string) error {
	fs := flag.NewFlagSet("contribute", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	keyHex := fs.String("key", "", "Signing key hex")
	sale := fs.Uint64("sale", 0, "Sale id")
	payload := fs.String("payload", "", "Encrypted contribution payload hex")
	fs.Parse(args)

	p, err := parsePayload(*payload)
	if err != nil {
		return err
	}

	c, err := newClient(*url, *keyHex)
	if err != nil {
		return err
	}

	if err := c.ContributeEncrypted(context.Background(), ledger.SaleID(*sale), p); err != nil {
		return err
	}
	fmt.Printf("Contributed to sale %d as %s (payload digest %s)\n", *sale, c.Principal().String(), p.Digest())
	return nil
}

func runFinalize(args []string) error {
	fs := flag.NewFlagSet("finalize", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	keyHex := fs.String("key", "", "Signing key hex")
	sale := fs.Uint64("sale", 0, "Sale id")
	summary := fs.String("summary", "", "Encrypted summary commitment hex")
	fs.Parse(args)

	p, err := parsePayload(*summary)
	if err != nil {
		return err
	}

	c, err := newClient(*url, *keyHex)
	if err != nil {
		return err
	}

	if err := c.FinalizeSale(context.Background(), ledger.SaleID(*sale), p); err != nil {
		return err
	}
	fmt.Printf("Finalized sale %d\n", *sale)
	return nil
}

func runClaim(args []string) error {
	fs := flag.NewFlagSet("claim", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	keyHex := fs.String("key", "", "Signing key hex")
	sale := fs.Uint64("sale", 0, "Sale id")
	allocation := fs.String("allocation", "", "Encrypted allocation payload hex")
	fs.Parse(args)

	p, err := parsePayload(*allocation)
	if err != nil {
		return err
	}

	c, err := newClient(*url, *keyHex)
	if err != nil {
		return err
	}

	if err := c.ClaimAllocationEncrypted(context.Background(), ledger.SaleID(*sale), p); err != nil {
		return err
	}
	fmt.Printf("Claimed allocation for sale %d as %s\n", *sale, c.Principal().String())
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	sale := fs.Uint64("sale", 0, "Sale id")
	fs.Parse(args)

	c, err := newClient(*url, "")
	if err != nil {
		return err
	}

	s, err := c.Sale(context.Background(), ledger.SaleID(*sale))
	if err != nil {
		return err
	}
	active, err := c.IsActive(context.Background(), ledger.SaleID(*sale))
	if err != nil {
		return err
	}

	fmt.Printf("Sale %d\n", s.ID)
	fmt.Printf("  Owner:         %s\n", s.Owner)
	fmt.Printf("  Window:        %s .. %s\n", s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
	fmt.Printf("  Active now:    %v (flag %v)\n", active, s.Active)
	fmt.Printf("  Finalized:     %v\n", s.Finalized)
	fmt.Printf("  Contributors:  %d\n", s.ContributorCount)
	fmt.Printf("  Contributions: %d\n", s.ContributionCount)
	return nil
}

func runEvents(args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	since := fs.Uint64("since", 0, "Only events with seq greater than this")
	fs.Parse(args)

	c, err := newClient(*url, "")
	if err != nil {
		return err
	}

	events, err := c.Events(context.Background(), *since)
	if err != nil {
		return err
	}

	for _, ev := range events {
		line := fmt.Sprintf("%6d %-30s sale=%d", ev.Seq, ev.Kind, ev.SaleID)
		if ev.Actor != "" {
			line += " actor=" + ev.Actor
		}
		if !ev.Payload.IsEmpty() {
			line += " payload=" + ev.Payload.Digest()
		}
		fmt.Println(line)
	}
	return nil
}
