package store

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	upErr    error
	closeErr error
	closed   int
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Close() (error, error) {
	f.closed++
	return nil, f.closeErr
}

func TestApplyMigrations_AlwaysCloses(t *testing.T) {
	tests := []struct {
		name        string
		upErr       error
		wantApplied bool
		wantErr     bool
	}{
		{name: "applied", wantApplied: true},
		{name: "already current", upErr: migrate.ErrNoChange},
		{name: "failed", upErr: errors.New("syntax error"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMigrator{upErr: tt.upErr}

			applied, err := applyMigrations(m)

			assert.Equal(t, tt.wantApplied, applied)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, 1, m.closed)
		})
	}
}

func TestApplyMigrations_ReportsCloseFailure(t *testing.T) {
	closeErr := errors.New("conn busy")
	m := &fakeMigrator{closeErr: closeErr}

	applied, err := applyMigrations(m)

	assert.True(t, applied)
	require.ErrorIs(t, err, closeErr)
}
