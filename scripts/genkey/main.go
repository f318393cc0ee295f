// genkey generates an Ed25519 key pair for Solvine admin token signing and
// prints a fresh admin API key.
//
// Usage (run from the repo root):
//
//	go run ./scripts/genkey [dir]
//
// Writes <dir>/jwt_private.pem and <dir>/jwt_public.pem (default dir: data).
// Point SOLVINE_JWT_PRIVATE_KEY and SOLVINE_JWT_PUBLIC_KEY at them. Without
// persistent keys the server generates an ephemeral pair on every start and
// all issued tokens die with the process.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/solvine-ai/solvine/internal/auth"
)

func main() {
	dir := "data"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	privPath := filepath.Join(dir, "jwt_private.pem")
	pubPath := filepath.Join(dir, "jwt_public.pem")

	if err := auth.WriteKeyPair(privPath, pubPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	key, err := auth.GenerateAdminKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("SOLVINE_JWT_PRIVATE_KEY=%s\n", privPath)
	fmt.Printf("SOLVINE_JWT_PUBLIC_KEY=%s\n", pubPath)
	fmt.Printf("SOLVINE_ADMIN_API_KEY=%s\n", key)
}
