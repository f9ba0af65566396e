package main

import (
	"encoding/hex"
	"fmt"

	"github.com/tos-network/vault-core/history"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/store"
)

func openAll(dbPath string) (*store.Store, *keystore.Keystore, *history.Log, error) {
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return s, keystore.Open(s), history.Open(s), nil
}

func runSeedNew(args []string) error {
	fs := newFlagSet("seed-new")
	db := fs.String("db", "", "path to the vault store directory")
	seedfile := fs.String("seedfile", "", "path to the encrypted seed file")
	pass := fs.String("pass", "", "passphrase protecting the seed file")
	name := fs.String("name", "", "seed name")
	mnemonic := fs.String("mnemonic", "", "existing BIP39 mnemonic (leave empty to generate one)")
	words := fs.Int("words", 24, "word count for a generated mnemonic (12, 15, 18, 21, or 24)")
	fs.Parse(args)
	if *db == "" || *seedfile == "" || *name == "" {
		return fmt.Errorf("seed-new requires -db, -seedfile, and -name")
	}

	storage, err := openFileSeedStorage(*seedfile, *pass)
	if err != nil {
		return err
	}
	entropyBits := wordsToEntropyBits(*words)
	final, err := keystore.TryCreateSeed(storage, *name, *mnemonic, entropyBits)
	if err != nil {
		return err
	}

	s, ks, hist, err := openAll(*db)
	if err != nil {
		return err
	}
	defer s.Close()
	if _, err := hist.Append(history.KindSeedCreated, "seed created: "+*name, nil); err != nil {
		return err
	}

	fmt.Printf("seed %q created\nmnemonic: %s\n", *name, final)
	fmt.Println("record this phrase now; vaultctl will not print it again.")
	return ks.MarkSeedPhraseShown(hist, *name)
}

func wordsToEntropyBits(words int) int {
	switch words {
	case 12:
		return 128
	case 15:
		return 160
	case 18:
		return 192
	case 21:
		return 224
	default:
		return 256
	}
}

func runSeedList(args []string) error {
	fs := newFlagSet("seed-list")
	db := fs.String("db", "", "path to the vault store directory")
	seedfile := fs.String("seedfile", "", "path to the encrypted seed file")
	pass := fs.String("pass", "", "passphrase protecting the seed file")
	fs.Parse(args)
	if *db == "" || *seedfile == "" {
		return fmt.Errorf("seed-list requires -db and -seedfile")
	}

	storage, err := openFileSeedStorage(*seedfile, *pass)
	if err != nil {
		return err
	}
	s, ks, _, err := openAll(*db)
	if err != nil {
		return err
	}
	defer s.Close()

	summaries, err := ks.SeedSummaries(storage)
	if err != nil {
		return err
	}
	for _, sum := range summaries {
		fmt.Printf("%-20s addresses=%d\n", sum.SeedName, sum.AddressCount)
		for genesis, count := range sum.NetworkCounts {
			fmt.Printf("    %s: %d\n", genesis, count)
		}
	}
	return nil
}

func hexDecodeGenesis(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
