package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"relatorio.pdf", "relatorio.pdf"},
		{"../../etc/passwd", "etcpasswd"},
		{"bilhete ida (1).jpg", "bilheteida1.jpg"},
		{".hidden", "hidden"},
		{"a1b2-c3d4_e5", "a1b2-c3d4_e5"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestLocalDocumentStore_SaveReadDelete(t *testing.T) {
	base := t.TempDir()
	store := NewLocalDocumentStore(base, zap.NewNop())
	ctx := context.Background()

	path, err := store.Save(ctx, "req-1", "relatório final.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("req-1", "relatriofinal.pdf"), path)

	_, err = os.Stat(filepath.Join(base, path))
	require.NoError(t, err)

	content, err := store.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(content))

	require.NoError(t, store.Delete(ctx, path))
	require.NoError(t, store.Delete(ctx, path), "deleting twice succeeds")

	_, err = store.Read(ctx, path)
	assert.Error(t, err)
}

func TestLocalDocumentStore_RejectsEscapes(t *testing.T) {
	store := NewLocalDocumentStore(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	_, err := store.Save(ctx, "req-1", "///", []byte("x"))
	assert.Error(t, err)

	_, err = store.Read(ctx, "../outside.txt")
	assert.Error(t, err)

	assert.Error(t, store.Delete(ctx, "../../outside.txt"))
}
