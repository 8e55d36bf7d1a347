package system

import (
	"context"
	"io"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/app"
)

func runApp(t *testing.T, cfg *app.Config) error {
	t.Helper()
	a, err := app.NewApp(io.Discard, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	return a.Run(context.Background())
}
