package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"markershare/internal/auth"
	"markershare/internal/authpw"
	"markershare/internal/rbac"
)

// newRootCommand wires flags over the same environment variables the API
// server reads, so a flag is only needed to override them.
func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetDefault("jwt_expires_in_seconds", 3600)
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("jwt_expires_in_seconds", "JWT_EXPIRES_IN_SECONDS")

	root := &cobra.Command{
		Use:   "markerctl",
		Short: "Operator tooling for the marker share API",
		Long: `Operator tooling for the marker share API.
	Reads these environment variables unless overridden by flags:
JWT_SECRET                  // HMAC key used by the API server
JWT_EXPIRES_IN_SECONDS      // default token lifetime, example: 3600
`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("secret", "", "token signing secret (default $JWT_SECRET)")
	_ = v.BindPFlag("jwt_secret", root.PersistentFlags().Lookup("secret"))

	root.AddCommand(newHashPasswordCommand(), newIssueTokenCommand(v), newVerifyTokenCommand(v))
	return root
}

func newHashPasswordCommand() *cobra.Command {
	var useBcrypt bool
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the hash to configure as ADMIN_PASSWORD_HASH_SHA256 or ADMIN_PASSWORD_BCRYPT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if useBcrypt {
				hash, err := authpw.HashBcrypt(password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), auth.HashSHA256(password))
			return nil
		},
	}
	cmd.Flags().BoolVar(&useBcrypt, "bcrypt", false, "emit a bcrypt hash instead of SHA-256 hex")
	return cmd
}

func newIssueTokenCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Mint a token the API server will accept",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := signerFrom(v)
			if err != nil {
				return err
			}
			subject, _ := cmd.Flags().GetString("subject")
			role, _ := cmd.Flags().GetString("role")
			ttl := time.Duration(v.GetInt("jwt_expires_in_seconds")) * time.Second

			token, _, err := signer.Issue(subject, string(rbac.Normalize(role)), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("subject", "admin", "token subject")
	cmd.Flags().String("role", string(rbac.RoleAdmin), "token role (admin or viewer)")
	cmd.Flags().Int("ttl", 0, "lifetime in seconds (default $JWT_EXPIRES_IN_SECONDS)")
	_ = v.BindPFlag("jwt_expires_in_seconds", cmd.Flags().Lookup("ttl"))
	return cmd
}

func newVerifyTokenCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-token <token>",
		Short: "Check a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := signerFrom(v)
			if err != nil {
				return err
			}
			claims, err := signer.Verify(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(map[string]any{
				"sub":       claims.Sub,
				"role":      claims.Role,
				"issuedAt":  time.Unix(claims.Iat, 0).UTC().Format(time.RFC3339),
				"expiresAt": time.Unix(claims.Exp, 0).UTC().Format(time.RFC3339),
			})
		},
	}
}

func signerFrom(v *viper.Viper) (*auth.Signer, error) {
	signer, err := auth.NewSigner(v.GetString("jwt_secret"))
	if errors.Is(err, auth.ErrMissingSecret) {
		return nil, fmt.Errorf("%w: pass --secret or set JWT_SECRET", err)
	}
	return signer, err
}

// passwordArg takes the password from the argument or the first stdin line.
func passwordArg(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
