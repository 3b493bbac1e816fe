package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trustmeet/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService_PerformBackup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fundedAccount(t, db, 1, 1000)

	dir := filepath.Join(t.TempDir(), "backups")
	logger := zerolog.Nop()
	svc := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: dir, RetentionDays: 7}, &logger)

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, strings.HasPrefix(filepath.Base(path), backupPrefix))

	restored, err := NewDB(path, &logger)
	require.NoError(t, err)
	defer restored.Close()

	acc, err := restored.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), acc.DepositBalance)
}

func TestBackupService_CleanupOldBackups(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.Nop()
	svc := NewBackupService(nil, config.BackupConfig{StoragePath: dir, RetentionDays: 1}, &logger)

	old := filepath.Join(dir, backupPrefix+"old.db")
	fresh := filepath.Join(dir, backupPrefix+"fresh.db")
	other := filepath.Join(dir, "unrelated.db")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	past := time.Now().AddDate(0, 0, -3)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	svc.CleanupOldBackups()

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestBackupService_DisabledReturns(t *testing.T) {
	logger := zerolog.Nop()
	svc := NewBackupService(nil, config.BackupConfig{Enabled: false}, &logger)

	done := make(chan struct{})
	go func() {
		svc.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled backup service should return immediately")
	}
}
