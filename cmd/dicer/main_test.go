package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/layer-3/dicer/core"
	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(usageError("login needs exactly one wallet address")))
	assert.Equal(t, 1, exitCode(userError(core.ErrRefreshFailed)))
	assert.Equal(t, 1, exitCode(fmt.Errorf("open: %w", errors.New("no such file"))))

	err := userError(core.ErrRefreshFailed)
	assert.ErrorIs(t, err, core.ErrRefreshFailed)
}

func TestCommandErrorsDoNotExitEarly(t *testing.T) {
	// cli exits the process from within the command for ExitCoder errors, skipping After
	var exitCoder cli.ExitCoder
	assert.False(t, errors.As(usageError("bad"), &exitCoder))
	assert.False(t, errors.As(userError(core.ErrRefreshFailed), &exitCoder))
}

func TestAfterRunsOnCommandError(t *testing.T) {
	closed := false
	app := &cli.App{
		Name:           "dicer",
		ExitErrHandler: func(*cli.Context, error) {},
		After: func(*cli.Context) error {
			closed = true
			return nil
		},
		Commands: []*cli.Command{{
			Name:   "login",
			Action: func(*cli.Context) error { return usageError("login needs exactly one wallet address") },
		}},
	}

	err := app.Run([]string{"dicer", "login"})
	assert.Equal(t, 2, exitCode(err))
	assert.True(t, closed)
}
