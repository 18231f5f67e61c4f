package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/accounts/keystore"

	"github.com/sudo-init-do/hushousing/internal/config"
)

func main() {
	passphrase := flag.String("passphrase", "", "Passphrase protecting the new key")
	dir := flag.String("keystore", "", "Keystore directory (defaults to KEYSTORE_DIR)")
	flag.Parse()

	if *passphrase == "" {
		log.Fatalf("usage: go run cmd/adminutil/new_account/main.go -passphrase secret [-keystore ./keystore]")
	}

	if *dir == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("config error: %v", err)
		}
		*dir = cfg.Chain.KeystoreDir
	}
	if *dir == "" {
		log.Fatalf("no keystore directory: pass -keystore or set KEYSTORE_DIR")
	}

	ks := keystore.NewKeyStore(*dir, keystore.StandardScryptN, keystore.StandardScryptP)
	acct, err := ks.NewAccount(*passphrase)
	if err != nil {
		log.Fatalf("failed to create account: %v", err)
	}

	fmt.Printf("Created account %s in %s.\n", acct.Address.Hex(), acct.URL.Path)
	if len(ks.Accounts()) > 1 {
		fmt.Printf("Note: the console connects as the first account, %s.\n", ks.Accounts()[0].Address.Hex())
	}
}
