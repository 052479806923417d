// Command keygen writes a new RSA key pair for signing access credentials.
//
//	go run ./cmd/keygen -out keys
//
// The server reads keys/private.pem by default (JWT_PRIVATE_KEY_PATH).
// Rotating the pair invalidates every credential issued so far.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rodionaltshuler/smart-reminder-server/internal/auth"
)

func main() {
	out := flag.String("out", "keys", "directory to write private.pem and public.pem to")
	bits := flag.Int("bits", auth.DefaultKeyBits, "RSA key size")
	force := flag.Bool("force", false, "overwrite existing keys")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	privPath := filepath.Join(*out, "private.pem")
	pubPath := filepath.Join(*out, "public.pem")

	if !*force {
		if _, err := os.Stat(privPath); err == nil {
			logger.Error("key already exists; pass -force to overwrite", slog.String("path", privPath))
			os.Exit(1)
		}
	}

	key, err := auth.GenerateKeyPair(*bits)
	if err != nil {
		logger.Error("failed to generate key", slog.String("error", err.Error()))
		os.Exit(1)
	}
	pubPEM, err := auth.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		logger.Error("failed to encode public key", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := os.MkdirAll(*out, 0o700); err != nil {
		logger.Error("failed to create key directory", slog.String("dir", *out), slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := os.WriteFile(privPath, auth.EncodePrivateKeyPEM(key), 0o600); err != nil {
		logger.Error("failed to write private key", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		logger.Error("failed to write public key", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("key pair written",
		slog.String("private", privPath),
		slog.String("public", pubPath),
		slog.Int("bits", *bits),
	)
}
