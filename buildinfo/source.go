// Package buildinfo looks up the build number and build properties of each
// board. Lookups that fail fall back to per-family defaults.
package buildinfo

import (
	"context"
	"log/slog"

	"github.com/sarchlab/fpgaseq/board"
)

// A Source answers build metadata queries for boards.
type Source interface {
	BuildNumber(ctx context.Context, boardName string) (int, error)
	Properties(ctx context.Context, buildType string, build int) (board.Properties, error)
}

// Load fills in the build number and properties of a board from src. Any
// failure is logged as a warning and the family defaults are kept, so a
// sequence still compiles when the metadata store is unreachable.
func Load(ctx context.Context, src Source, b *board.Board, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	b.BuildNumber = board.DefaultBuildNumber(b.Family)
	if b.Family == board.Adc {
		b.Properties = board.DefaultAdcProperties()
	} else {
		b.Properties = board.DefaultDacProperties()
	}

	if src == nil {
		return
	}

	build, err := src.BuildNumber(ctx, b.Name)
	if err != nil {
		logger.Warn("build number unavailable, using default",
			"board", b.Name,
			"default", b.BuildNumber,
			"err", err,
		)

		return
	}

	props, err := src.Properties(ctx, b.Family.BuildType(), build)
	if err != nil {
		logger.Warn("build properties unavailable, using defaults",
			"board", b.Name,
			"build", build,
			"err", err,
		)

		return
	}

	b.BuildNumber = build
	b.Properties = props
}

// LoadAll runs Load for every board.
func LoadAll(ctx context.Context, src Source, boards []*board.Board, logger *slog.Logger) {
	for _, b := range boards {
		Load(ctx, src, b, logger)
	}
}

// StaticSource serves metadata from memory. Recipes use it to pin builds
// without a database.
type StaticSource struct {
	Builds map[string]int
	Props  map[string]map[int]board.Properties
}

func (s StaticSource) BuildNumber(_ context.Context, boardName string) (int, error) {
	n, ok := s.Builds[boardName]
	if !ok {
		return 0, &NotFoundError{What: "build number", Key: boardName}
	}

	return n, nil
}

func (s StaticSource) Properties(
	_ context.Context,
	buildType string,
	build int,
) (board.Properties, error) {
	byBuild, ok := s.Props[buildType]
	if !ok {
		return nil, &NotFoundError{What: "build type", Key: buildType}
	}

	p, ok := byBuild[build]
	if !ok {
		return nil, &NotFoundError{What: "build", Key: buildType, Build: build}
	}

	return p.Clone(), nil
}
