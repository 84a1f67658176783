package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/layer-3/dicer/config"
	"github.com/layer-3/dicer/core"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var a *app
	cliApp := &cli.App{
		Name:  "dicer",
		Usage: "play the dice rewards game from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Usage:   "wallet address to log in with when no session is stored",
				EnvVars: []string{"WALLET_ADDRESS"},
			},
		},
		// Exit codes are chosen in main once After has closed the app.
		ExitErrHandler: func(*cli.Context, error) {},
		Before: func(c *cli.Context) error {
			a, err = newApp(c.Context, cfg)
			return err
		},
		After: func(c *cli.Context) error {
			if a != nil {
				a.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "login",
				Usage:     "log in with a wallet address",
				ArgsUsage: "<address>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "referral", Usage: "referral code of the inviting player"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return usageError("login needs exactly one wallet address")
					}
					if code := c.String("referral"); code != "" {
						a.connector.SetReferralCode(c.Context, code)
					}
					if err := a.sessions.Login(c.Context, c.Args().First()); err != nil {
						return userError(err)
					}
					return printJSON(a.game.UserInfo(c.Context))
				},
			},
			{
				Name:  "logout",
				Usage: "forget the stored session and wallet",
				Action: func(c *cli.Context) error {
					a.sessions.Logout(c.Context)
					return nil
				},
			},
			{
				Name:  "me",
				Usage: "show points and rolls left",
				Action: func(c *cli.Context) error {
					if err := a.ensureLogin(c.Context, c.String("address")); err != nil {
						return userError(err)
					}
					return printJSON(a.game.UserInfo(c.Context))
				},
			},
			{
				Name:  "roll",
				Usage: "roll the dice",
				Action: func(c *cli.Context) error {
					if err := a.ensureLogin(c.Context, c.String("address")); err != nil {
						return userError(err)
					}
					return printJSON(a.game.RollDice(c.Context))
				},
			},
			{
				Name:  "leaderboard",
				Usage: "show the ranking",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "size", Value: 20},
				},
				Action: func(c *cli.Context) error {
					if err := a.ensureLogin(c.Context, c.String("address")); err != nil {
						return userError(err)
					}
					return printJSON(a.game.Leaderboard(c.Context, c.Int("page"), c.Int("size")))
				},
			},
			{
				Name:  "checkin",
				Usage: "record today's attendance",
				Action: func(c *cli.Context) error {
					if err := a.ensureLogin(c.Context, c.String("address")); err != nil {
						return userError(err)
					}
					return printJSON(a.game.CheckAttendance(c.Context))
				},
			},
			{
				Name:  "missions",
				Usage: "list missions",
				Action: func(c *cli.Context) error {
					if err := a.ensureLogin(c.Context, c.String("address")); err != nil {
						return userError(err)
					}
					return printJSON(a.game.Missions(c.Context))
				},
			},
			{
				Name:      "diagnose",
				Usage:     "upload a pet photo for diagnosis",
				ArgsUsage: "<image>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "note", Usage: "symptoms to pass along"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return usageError("diagnose needs exactly one image path")
					}
					if err := a.ensureLogin(c.Context, c.String("address")); err != nil {
						return userError(err)
					}
					f, err := os.Open(c.Args().First())
					if err != nil {
						return err
					}
					defer f.Close()
					return printJSON(a.game.DiagnosePet(c.Context, f.Name(), f, c.String("note")))
				},
			},
			{
				Name:  "connect",
				Usage: "connect the wallet, restoring the previous one when still authorized",
				Action: func(c *cli.Context) error {
					if _, err := a.bootstrap.Initialize(c.Context); err != nil {
						return userError(err)
					}
					if current, ok := a.wallets.Current(); ok && a.sessions.IsLoggedIn(c.Context) {
						fmt.Printf("restored %s (%s)\n", current.Address, current.WalletType)
						return nil
					}
					session, err := a.connector.Connect(c.Context)
					if err != nil {
						return userError(err)
					}
					fmt.Printf("connected %s (%s)\n", session.Address, session.WalletType)
					return nil
				},
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(exitCode(err))
	}
}

func printJSON(v interface{}, err error) error {
	if err != nil {
		return userError(err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// commandError carries the process exit status of a failed command
type commandError struct {
	status int
	msg    string
	err    error
}

func (e *commandError) Error() string { return e.msg }

func (e *commandError) Unwrap() error { return e.err }

func usageError(msg string) error {
	return &commandError{status: 2, msg: msg}
}

func userError(err error) error {
	return &commandError{status: 1, msg: fmt.Sprintf("%s (%v)", core.UserMessage(err), err), err: err}
}

func exitCode(err error) int {
	var cmdErr *commandError
	if errors.As(err, &cmdErr) {
		return cmdErr.status
	}
	return 1
}
