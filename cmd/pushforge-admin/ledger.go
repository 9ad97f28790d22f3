package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pushforge/pushforge/internal/bootstrap"
	"github.com/pushforge/pushforge/internal/domain/model"
)

type grantOptions struct {
	UserID string
	Amount int
	Type   model.TransactionType
}

type balanceOptions struct {
	UserID string
}

type transactionsOptions struct {
	UserID string
	Limit  int
}

func parseGrantFlags(args []string) (grantOptions, error) {
	fs := flag.NewFlagSet("grant", flag.ContinueOnError)
	opts := grantOptions{Type: model.TransactionGrant}
	var txType string
	fs.StringVar(&opts.UserID, "user", "", "user to credit (required)")
	fs.IntVar(&opts.Amount, "amount", 0, "number of credits to add (required)")
	fs.StringVar(&txType, "type", string(model.TransactionGrant), "transaction type: grant or purchase")
	if err := fs.Parse(args); err != nil {
		return grantOptions{}, fmt.Errorf("parse grant flags: %w", err)
	}
	if opts.UserID == "" {
		return grantOptions{}, errors.New("--user is required")
	}
	if opts.Amount <= 0 {
		return grantOptions{}, errors.New("--amount must be greater than zero")
	}
	if err := opts.Type.UnmarshalText([]byte(txType)); err != nil {
		return grantOptions{}, fmt.Errorf("parse --type: %w", err)
	}
	if opts.Type != model.TransactionGrant && opts.Type != model.TransactionPurchase {
		return grantOptions{}, fmt.Errorf("--type must be grant or purchase, got %q", opts.Type)
	}
	return opts, nil
}

func parseBalanceFlags(args []string) (balanceOptions, error) {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	opts := balanceOptions{}
	fs.StringVar(&opts.UserID, "user", "", "user to inspect (required)")
	if err := fs.Parse(args); err != nil {
		return balanceOptions{}, fmt.Errorf("parse balance flags: %w", err)
	}
	if opts.UserID == "" {
		return balanceOptions{}, errors.New("--user is required")
	}
	return opts, nil
}

func parseTransactionsFlags(args []string) (transactionsOptions, error) {
	fs := flag.NewFlagSet("transactions", flag.ContinueOnError)
	opts := transactionsOptions{}
	fs.StringVar(&opts.UserID, "user", "", "user to inspect (required)")
	fs.IntVar(&opts.Limit, "limit", 20, "maximum number of transactions to list")
	if err := fs.Parse(args); err != nil {
		return transactionsOptions{}, fmt.Errorf("parse transactions flags: %w", err)
	}
	if opts.UserID == "" {
		return transactionsOptions{}, errors.New("--user is required")
	}
	if opts.Limit <= 0 {
		return transactionsOptions{}, errors.New("--limit must be greater than zero")
	}
	return opts, nil
}

func runGrant(cmdCtx *commandContext, args []string) error {
	opts, err := parseGrantFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := bootstrap.NewServices(&bootstrap.ServiceDeps{
			Config: &cmdCtx.Config,
			DB:     db,
			Logger: cmdCtx.Logger,
		})

		txn, grantErr := svcs.Credits.Grant(ctx, opts.UserID, opts.Amount, opts.Type)
		if grantErr != nil {
			return fmt.Errorf("grant credits: %w", grantErr)
		}

		if writeErr := writef(
			os.Stdout,
			"Granted %d credits to %s (%s); balance is now %d\n",
			opts.Amount, opts.UserID, txn.Type, txn.BalanceAfter,
		); writeErr != nil {
			return fmt.Errorf("print grant summary: %w", writeErr)
		}
		return nil
	})
}

func runBalance(cmdCtx *commandContext, args []string) error {
	opts, err := parseBalanceFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := bootstrap.NewServices(&bootstrap.ServiceDeps{
			Config: &cmdCtx.Config,
			DB:     db,
			Logger: cmdCtx.Logger,
		})

		balance, balErr := svcs.Credits.GetBalance(ctx, opts.UserID)
		if balErr != nil {
			return fmt.Errorf("get balance: %w", balErr)
		}

		if writeErr := writef(os.Stdout, "%s: %d credits\n", opts.UserID, balance); writeErr != nil {
			return fmt.Errorf("print balance: %w", writeErr)
		}
		return nil
	})
}

func runTransactions(cmdCtx *commandContext, args []string) error {
	opts, err := parseTransactionsFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := bootstrap.NewServices(&bootstrap.ServiceDeps{
			Config: &cmdCtx.Config,
			DB:     db,
			Logger: cmdCtx.Logger,
		})

		txns, listErr := svcs.Credits.Transactions(ctx, opts.UserID, opts.Limit)
		if listErr != nil {
			return fmt.Errorf("list transactions: %w", listErr)
		}
		if len(txns) == 0 {
			if writeErr := writef(os.Stdout, "No transactions found for %s\n", opts.UserID); writeErr != nil {
				return fmt.Errorf("print empty transactions notice: %w", writeErr)
			}
			return nil
		}

		return printTransactions(txns)
	})
}

func printTransactions(txns []*model.Transaction) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "CREATED\tTYPE\tAMOUNT\tBALANCE\tJOB"); err != nil {
		return fmt.Errorf("print transactions header: %w", err)
	}
	for _, txn := range txns {
		jobID := "-"
		if txn.JobID != nil {
			jobID = *txn.JobID
		}
		if err := writef(tw, "%s\t%s\t%+d\t%d\t%s\n",
			txn.CreatedAt.Format(time.RFC3339), txn.Type, txn.Amount, txn.BalanceAfter, jobID,
		); err != nil {
			return fmt.Errorf("print transaction row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush transactions table: %w", err)
	}
	return nil
}
