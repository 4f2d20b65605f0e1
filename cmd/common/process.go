// Package common contains shared functionality for command handlers
package common

import (
	"context"
	"errors"
	"fmt"

	"clawback/clawback/cmd/root"
	"clawback/clawback/internal/config"
	"clawback/clawback/internal/container"
	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parsererror"

	"github.com/spf13/cobra"
)

// RunWithContainer builds the application container from the loaded config,
// runs fn and closes the container afterwards. adjust, when not nil, may tweak
// a copy of the config first.
func RunWithContainer(cmd *cobra.Command, adjust func(*config.Config), fn func(ctx context.Context, c *container.Container) error) error {
	loaded, err := root.EnsureConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	cfg := *loaded
	if adjust != nil {
		adjust(&cfg)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := logging.NewLogrusAdapterFromLogger(root.Log)
	c, err := container.NewContainerWithLogger(ctx, &cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close container")
		}
	}()

	return fn(ctx, c)
}

// LoadTrip fetches a trip by name. An unknown name wraps parsererror.ErrTripNotFound.
func LoadTrip(ctx context.Context, c *container.Container, name string) (models.Trip, error) {
	trip, err := c.GetStore().Get(ctx, name)
	if errors.Is(err, parsererror.ErrTripNotFound) {
		return models.Trip{}, fmt.Errorf("%w: '%s'", parsererror.ErrTripNotFound, name)
	}
	if err != nil {
		return models.Trip{}, fmt.Errorf("error loading trip '%s': %w", name, err)
	}
	return trip, nil
}
