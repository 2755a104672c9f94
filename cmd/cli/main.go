package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/auth"
	"github.com/iho/cartsplit/internal/infrastructure/logger"
	"github.com/iho/cartsplit/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cartsplit-cli",
		Short: "cartsplit CLI tool",
		Long:  `A command line interface for operating a cartsplit server.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the cartsplit API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(migrateCmd(), settleCmd(), tokenCmd(), healthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	var databaseURL, migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", "file://migrations", "Migrations source")

	migrator := func() *postgres.Migrator {
		l := logger.New(logger.Config{Level: "info", Format: "console", Output: os.Stderr})
		return postgres.NewMigrator(databaseURL, migrationsPath, l)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrator().Up()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrator().Down()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				version, dirty, err := migrator().Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", version, dirty)
				return nil
			},
		},
	)
	return cmd
}

func settleCmd() *cobra.Command {
	var file string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Settle a receipt file offline and print the resulting debts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			edges, err := settleReceipt(in)
			if err != nil {
				return err
			}

			if asJSON {
				printJSON(edgesJSON(edges))
				return nil
			}
			if len(edges) == 0 {
				fmt.Println("Nobody owes anything")
				return nil
			}
			for _, e := range edges {
				fmt.Printf("%-30s -> %-30s %10s\n", truncate(e.OwedBy, 30), truncate(e.OwedTo, 30), e.Amount.StringFixed(2))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Receipt JSON file, - for stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print debts as JSON")
	return cmd
}

// settleReceipt reads a receipt in the API's request format and settles it
// without touching the database.
func settleReceipt(r io.Reader) ([]domain.DebtEdge, error) {
	var req dto.ReceiptRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid receipt: %w", err)
	}
	if err := dto.Validate(&req); err != nil {
		return nil, err
	}
	input := req.ToUseCaseInput("")

	now := time.Now().UTC()
	session := domain.Session{ID: "offline", CreationDate: now}
	for _, p := range input.Participants {
		if session.HasParticipant(p.Email) {
			return nil, fmt.Errorf("%w: %s listed twice", domain.ErrInvalidValue, p.Email)
		}
		session.Participants = append(session.Participants, domain.Participant{
			Email:      p.Email,
			Profile:    domain.Profile{Email: p.Email},
			AmountPaid: p.Payed,
			AmountOwed: decimal.Zero,
		})
	}

	for i, line := range input.Products {
		name := line.Name
		if name == "" {
			name = line.Barcode
		}
		quantity := line.Quantity
		if quantity == 0 {
			quantity = 1
		}

		var err error
		session, err = session.WithProduct(domain.ProductInstance{
			ID:           fmt.Sprintf("line-%d", i+1),
			Product:      domain.Product{ID: line.ProductID, Name: name},
			Participants: line.Participants,
			Quantity:     quantity,
			UnitPrice:    line.UnitPrice,
			CreatedAt:    now,
		})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	_, edges, err := session.Close(now)
	if err != nil {
		return nil, err
	}
	return domain.SignificantEdges(edges), nil
}

type edgeJSON struct {
	OwedBy string `json:"owed_by"`
	OwedTo string `json:"owed_to"`
	Amount string `json:"amount"`
}

func edgesJSON(edges []domain.DebtEdge) []edgeJSON {
	out := make([]edgeJSON, len(edges))
	for i, e := range edges {
		out[i] = edgeJSON{OwedBy: e.OwedBy, OwedTo: e.OwedTo, Amount: e.Amount.StringFixed(2)}
	}
	return out
}

func tokenCmd() *cobra.Command {
	var email, name, secret string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development token for AUTH_MODE=jwt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("a signing secret is required (--secret or JWT_SECRET)")
			}
			if err := domain.ValidateEmail(email); err != nil {
				return err
			}

			token, err := auth.NewJWTManager(secret, ttl).Generate(domain.Profile{
				Email:       domain.NormalizeEmail(email),
				DisplayName: name,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Identity to sign the token for")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHealth(baseURL)
		},
	}
}

func checkHealth(url string) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url + "/ready")
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check FAILED (status: %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Health check PASSED\n")
	fmt.Printf("Status: %v\n", result["status"])
	return nil
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to encode output: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
