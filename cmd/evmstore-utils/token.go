package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/evmstore/types"
	"github.com/ethpandaops/evmstore/utils"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate JWT tokens for API authentication",
}

var generateTokenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateToken(cmd)
	},
}

var generateSecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a random secret for token signing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateSecret()
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.AddCommand(generateTokenCmd)
	tokenCmd.AddCommand(generateSecretCmd)

	generateTokenCmd.Flags().StringP("name", "n", "", "Token name/identifier (required)")
	generateTokenCmd.Flags().BoolP("write", "w", false, "Allow apply and rollback operations")
	generateTokenCmd.Flags().String("duration", "", "Token duration (e.g. '24h', '7d', '30d', empty = no expiration)")
	generateTokenCmd.Flags().StringP("secret", "s", "", "JWT signing secret (uses config value if not provided)")

	generateTokenCmd.MarkFlagRequired("name")
}

func generateToken(cmd *cobra.Command) error {
	name, _ := cmd.Flags().GetString("name")
	write, _ := cmd.Flags().GetBool("write")
	duration, _ := cmd.Flags().GetString("duration")
	secret, _ := cmd.Flags().GetString("secret")
	configPath, _ := cmd.Flags().GetString("config")

	if secret == "" {
		cfg := &types.Config{}
		if err := utils.ReadConfig(cfg, configPath); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		secret = cfg.Auth.Secret
	}
	if secret == "" {
		return fmt.Errorf("no JWT secret provided. Use --secret flag, --config flag, or set AUTH_SECRET")
	}

	now := time.Now()
	claims := &types.APITokenClaims{
		Name:  name,
		Write: write,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Subject:  "api-access",
		},
	}

	if duration != "" {
		parsedDuration, err := parseDurationWithDays(duration)
		if err != nil {
			return fmt.Errorf("invalid duration format: %v (use format like '24h', '7d', '30d')", err)
		}
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(parsedDuration))
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Printf("Name: %s\n", name)
	fmt.Printf("Write access: %v\n", write)
	fmt.Printf("Issued At: %s\n", now.Format(time.RFC3339))
	if claims.ExpiresAt != nil {
		fmt.Printf("Expires At: %s\n", claims.ExpiresAt.Format(time.RFC3339))
	} else {
		fmt.Printf("Expires At: Never\n")
	}
	fmt.Printf("\nToken:\n%s\n", tokenString)
	return nil
}

func generateSecret() error {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("error generating secret: %w", err)
	}
	secret := base64.StdEncoding.EncodeToString(secretBytes)

	fmt.Printf("Secret: %s\n", secret)
	fmt.Printf("\nAdd this to your config.yaml:\n")
	fmt.Printf("auth:\n")
	fmt.Printf("  secret: \"%s\"\n", secret)
	return nil
}

// parseDurationWithDays accepts time.ParseDuration formats plus a "<n>d" day suffix.
func parseDurationWithDays(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		days, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
