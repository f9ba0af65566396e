package main

import (
	"encoding/hex"
	"fmt"

	"github.com/tos-network/vault-core/crypto/ss58"
	"github.com/tos-network/vault-core/history"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/network"
)

func runAddressNew(args []string) error {
	fs := newFlagSet("address-new")
	db := fs.String("db", "", "path to the vault store directory")
	seedfile := fs.String("seedfile", "", "path to the encrypted seed file")
	pass := fs.String("pass", "", "passphrase protecting the seed file")
	seedName := fs.String("seed", "", "seed name to derive from")
	path := fs.String("path", "", "derivation path, e.g. //0 or //hard/soft///password")
	enc := fs.String("enc", "sr25519", "encryption scheme: sr25519, ed25519, ecdsa, or ethereum")
	genesisHex := fs.String("genesis", "", "hex-encoded network genesis hash")
	fs.Parse(args)
	if *db == "" || *seedfile == "" || *seedName == "" || *genesisHex == "" {
		return fmt.Errorf("address-new requires -db, -seedfile, -seed, and -genesis")
	}
	genesis, err := hexDecodeGenesis(*genesisHex)
	if err != nil {
		return fmt.Errorf("bad -genesis: %w", err)
	}

	storage, err := openFileSeedStorage(*seedfile, *pass)
	if err != nil {
		return err
	}
	s, ks, hist, err := openAll(*db)
	if err != nil {
		return err
	}
	defer s.Close()

	netStore := network.Open(s)
	specs, err := netStore.ByGenesisHash(genesis)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("no known network for genesis hash %s; add it first", *genesisHex)
	}

	addrKey, details, err := ks.TryCreateAddress(storage, *seedName, keystore.Encryption(*enc), *path, genesis)
	if err != nil {
		return err
	}
	if _, err := hist.Append(history.KindKeyCreated, "key created: "+*seedName+*path, nil); err != nil {
		return err
	}

	pubkey := addrKey[1:]
	addr := ss58.Encode(specs[0].Base58Prefix, pubkey)
	fmt.Printf("address: %s\n", addr)
	fmt.Printf("path:    %s\n", details.Path)
	fmt.Printf("pubkey:  %s\n", hex.EncodeToString(pubkey))
	return nil
}

func runAddressList(args []string) error {
	fs := newFlagSet("address-list")
	db := fs.String("db", "", "path to the vault store directory")
	fs.Parse(args)
	if *db == "" {
		return fmt.Errorf("address-list requires -db")
	}
	s, _, _, err := openAll(*db)
	if err != nil {
		return err
	}
	defer s.Close()
	fmt.Println("use seed-list to see per-seed address counts; per-address listing requires a network filter")
	return nil
}
