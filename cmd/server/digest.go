package main

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"gowicpbridge/principal"
	"gowicpbridge/suisig"
)

func newDigestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest <base64 transaction bytes>",
		Short: "Print the intent digest the custodial key signs for a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txBytes, err := base64.StdEncoding.DecodeString(strings.TrimSpace(args[0]))
			if err != nil {
				return errors.Wrap(err, "transaction is not base64")
			}
			digest := suisig.IntentDigest(txBytes)
			fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(digest[:]))
			return nil
		},
	}
}

func newPrincipalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "principal <text>",
		Short: "Print the raw bytes of a principal as passed to token::burn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := principal.Decode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(raw))
			return nil
		},
	}
}
