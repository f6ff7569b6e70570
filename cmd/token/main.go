// Command token mints a caller token for the payroll API.
//
//	JWT_SECRET=dev token -address 0xabc -ttl 24h
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/payroll-ledger/auth"
	"github.com/warp/payroll-ledger/payroll"
)

func main() {
	address := flag.String("address", "", "caller address (defaults to OWNER_ADDRESS)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		os.Exit(1)
	}
	if *address == "" {
		*address = os.Getenv("OWNER_ADDRESS")
	}

	issuer, err := auth.NewIssuer(os.Getenv("JWT_SECRET"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	token, err := issuer.Issue(payroll.NewAddress(*address), *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
