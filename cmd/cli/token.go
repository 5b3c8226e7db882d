package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankitpro/review-followup/internal/config"
	xhttp "github.com/rankitpro/review-followup/pkg/http"
)

var (
	tokenCompany string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenCompany, "company", "", "company id carried by the token (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("company")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for a company",
	Long: `Sign a bearer token with JWT_SECRET for calling the API as one company.

Examples:
  followupctl token --env=.env --company=acme --ttl=1h`,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		secret := config.Get().JwtSecret
		if secret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		token, err := xhttp.SignCompanyToken(tokenCompany, []byte(secret), time.Now().Add(tokenTTL).Unix())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}
