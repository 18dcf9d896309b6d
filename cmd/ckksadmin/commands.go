package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"

	"github.com/pscheid92/ckksgate/internal/codec"
	"github.com/pscheid92/ckksgate/internal/domain"
	"github.com/pscheid92/ckksgate/internal/platform/fsutil"
)

const (
	publicFileMode = 0o644
	secretFileMode = 0o600
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Create the shared context in KEY_DIR if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadAdminEnv()
			if err != nil {
				return err
			}
			provider, err := env.openProvider(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			info, err := provider.Describe()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "key store:   %s\n", env.store.Path())
			fmt.Fprintf(out, "fingerprint: %s\n", info.Context.Fingerprint)
			if provider.ContextsCreated() > 0 {
				fmt.Fprintln(out, "status:      generated")
			} else {
				fmt.Fprintln(out, "status:      already present")
			}
			return nil
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Describe a context export (raw or base64)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadAdminEnv()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if decoded, err := codec.Standard.Decode(strings.TrimSpace(string(data))); err == nil {
				data = decoded
			}

			desc, err := env.library.DescribeContext(data)
			if err != nil {
				return err
			}
			return writeDescription(cmd.OutOrStdout(), desc)
		},
	}
}

func writeDescription(w io.Writer, desc domain.ContextDescription) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "fingerprint\t%s\n", desc.Fingerprint)
	fmt.Fprintf(tw, "visibility\t%s\n", desc.Visibility)
	fmt.Fprintf(tw, "log N\t%d\n", desc.LogN)
	fmt.Fprintf(tw, "slots\t%d\n", desc.Slots)
	fmt.Fprintf(tw, "max level\t%d\n", desc.MaxLevel)
	fmt.Fprintf(tw, "scale\t2^%d\n", desc.LogDefaultScale)
	fmt.Fprintf(tw, "log Q\t%v\n", desc.LogQ)
	fmt.Fprintf(tw, "log P\t%v\n", desc.LogP)
	fmt.Fprintf(tw, "galois keys\t%d\n", desc.GaloisKeys)
	return tw.Flush()
}

func newExportPublicCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-public",
		Short: "Write the public context export as base64",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadAdminEnv()
			if err != nil {
				return err
			}
			provider, err := env.openProvider(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			cc, err := provider.Context(cmd.Context())
			if err != nil {
				return err
			}
			export, err := provider.PublicExport(cc)
			if err != nil {
				return err
			}
			if err := env.library.VerifyPublic(export); err != nil {
				return err
			}

			encoded := codec.Standard.Encode(export)
			if out == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), encoded)
				return err
			}
			return fsutil.WriteFileAtomic(out, []byte(encoded), publicFileMode)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newExportSecretCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-secret",
		Short: "Write the secret-bearing context export as base64 (mode 0600)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadAdminEnv()
			if err != nil {
				return err
			}
			provider, cc, err := env.secretContext(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			export, err := provider.SecretExport(domain.GrantAdministrative(capabilityHolder), cc)
			if err != nil {
				return err
			}
			if err := fsutil.WriteFileAtomic(out, []byte(codec.Standard.Encode(export)), secretFileMode); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote secret context to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newDecryptCmd() *cobra.Command {
	var (
		ciphertextPath string
		length         int
		summary        bool
	)
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a base64 ciphertext with the stored secret key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if length <= 0 {
				return errors.New("--length must be positive")
			}
			env, err := loadAdminEnv()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(ciphertextPath)
			if err != nil {
				return err
			}
			ciphertext, err := codec.Standard.Decode(strings.TrimSpace(string(data)))
			if err != nil {
				return err
			}

			provider, cc, err := env.secretContext(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			values, err := env.library.Decrypt(cmd.Context(), cc, ciphertext, length)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, v := range values {
				fmt.Fprintln(out, strconv.FormatFloat(v, 'g', 10, 64))
			}
			if summary {
				return writeSummary(out, values)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&ciphertextPath, "ciphertext", "c", "", "file holding a base64 ciphertext")
	cmd.Flags().IntVarP(&length, "length", "n", 0, "number of values packed in the ciphertext")
	cmd.Flags().BoolVar(&summary, "summary", false, "print mean, standard deviation, min and max")
	_ = cmd.MarkFlagRequired("ciphertext")
	_ = cmd.MarkFlagRequired("length")
	return cmd
}

func writeSummary(w io.Writer, values []float64) error {
	data := stats.Float64Data(values)
	mean, err := data.Mean()
	if err != nil {
		return err
	}
	stddev, err := data.StandardDeviation()
	if err != nil {
		return err
	}
	minimum, err := data.Min()
	if err != nil {
		return err
	}
	maximum, err := data.Max()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "count\t%d\n", len(values))
	fmt.Fprintf(tw, "mean\t%.6g\n", mean)
	fmt.Fprintf(tw, "stddev\t%.6g\n", stddev)
	fmt.Fprintf(tw, "min\t%.6g\n", minimum)
	fmt.Fprintf(tw, "max\t%.6g\n", maximum)
	return tw.Flush()
}
