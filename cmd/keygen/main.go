package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/tracecmd/backend/pkg/utils/crypto"
	"github.com/tracecmd/backend/pkg/utils/keygen"
	"github.com/tracecmd/backend/pkg/utils/sshkeygen"
)

func main() {
	seal := pflag.String("seal", "", "secret to seal with --key for storage.sftp.password")
	key := pflag.String("key", os.Getenv("TRACECMD_SECURITY_ENCRYPTION_KEY"), "encryption key used by --seal")
	sshKey := pflag.String("ssh-key", "", "write an Ed25519 key pair for SFTP storage to this path")
	pflag.Parse()

	switch {
	case *seal != "":
		sealed, err := crypto.Encrypt(*seal, *key)
		if err != nil {
			fail("failed to seal secret: %v", err)
		}
		fmt.Println(sealed)

	case *sshKey != "":
		path, err := filepath.Abs(*sshKey)
		if err != nil {
			fail("invalid key path: %v", err)
		}
		pub, err := sshkeygen.GenerateEd25519KeyPair(path)
		if err != nil {
			fail("failed to generate key pair: %v", err)
		}
		fmt.Printf("Private key: %s\n", path)
		fmt.Printf("Add to the storage host's authorized_keys:\n%s", pub)

	default:
		k, err := keygen.GenerateEncryptionKey(32)
		if err != nil {
			fail("failed to generate encryption key: %v", err)
		}
		fmt.Println(k)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
