package main

import "fmt"

func runHistoryList(args []string) error {
	fs := newFlagSet("history-list")
	db := fs.String("db", "", "path to the vault store directory")
	fs.Parse(args)
	if *db == "" {
		return fmt.Errorf("history-list requires -db")
	}
	s, _, hist, err := openAll(*db)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := hist.All()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%6d  %-20s %s\n", e.Order, e.Kind, e.Message)
	}
	return nil
}

func runHistoryChecksum(args []string) error {
	fs := newFlagSet("history-checksum")
	db := fs.String("db", "", "path to the vault store directory")
	fs.Parse(args)
	if *db == "" {
		return fmt.Errorf("history-checksum requires -db")
	}
	s, _, hist, err := openAll(*db)
	if err != nil {
		return err
	}
	defer s.Close()

	sum, err := hist.Checksum()
	if err != nil {
		return err
	}
	fmt.Println(sum)
	return nil
}

func runHistoryClear(args []string) error {
	fs := newFlagSet("history-clear")
	db := fs.String("db", "", "path to the vault store directory")
	checksum := fs.String("checksum", "", "checksum from history-checksum, confirming the operator has seen the current log")
	fs.Parse(args)
	if *db == "" || *checksum == "" {
		return fmt.Errorf("history-clear requires -db and -checksum")
	}
	s, _, hist, err := openAll(*db)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := hist.Clear(*checksum); err != nil {
		return err
	}
	fmt.Println("history cleared")
	return nil
}
