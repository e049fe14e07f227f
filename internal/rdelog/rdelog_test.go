package rdelog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rdeconv/internal/rdeconfig"
)

func TestSetupCreatesTimestampedLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &rdeconfig.Config{}
	now := time.Date(2026, 8, 3, 10, 30, 0, 0, time.UTC)

	logger, err := Setup(dir, cfg, now, false)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info().Msg("hello")

	_, statErr := os.Stat(filepath.Join(dir, "rdesys_20260803_103000.log"))
	assert.NoError(t, statErr)
}

func TestChainStringExpandsWrappedErrors(t *testing.T) {
	inner := errors.New("disk full")
	wrapped := fmt.Errorf("write tile output: %w", inner)
	s := chainString(wrapped)
	assert.Contains(t, s, "write tile output")
	assert.Contains(t, s, "disk full")
}
