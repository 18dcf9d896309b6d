// Command ckksadmin administers the CKKS key store out of band. It is the only
// holder of the administrative capability and never listens on the network.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pscheid92/ckksgate/internal/platform/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	info := version.Get()
	cmd := &cobra.Command{
		Use:   "ckksadmin",
		Short: "Administer the ckksgate key store",
		Long: `ckksadmin manages the CKKS key material behind ckksgate.

It reads the same environment as the server (KEY_DIR, KEY_ENCRYPTION_KEY and
the CKKS_* scheme parameters) and is the only tool allowed to export or use
the secret key.`,
		Version:       fmt.Sprintf("%s (commit %s, %s)", info.Version, info.Commit, info.CryptoLibrary),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newKeygenCmd(),
		newInspectCmd(),
		newExportPublicCmd(),
		newExportSecretCmd(),
		newDecryptCmd(),
	)
	return cmd
}
