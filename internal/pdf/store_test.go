package pdf

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultFilename 测试默认文件名约定: contract_{id}_{14位时间戳}.pdf
func TestDefaultFilename(t *testing.T) {
	name := DefaultFilename(42)
	assert.Regexp(t, regexp.MustCompile(`^contract_42_\d{14}\.pdf$`), name)
}

// TestSaveAppendsExtension 测试保存时自动补全 .pdf 扩展名
func TestSaveAppendsExtension(t *testing.T) {
	store := NewFileStore(t.TempDir())

	path, err := store.Save([]byte("%PDF-1.4"), "my_contract")
	require.NoError(t, err)
	assert.Equal(t, "my_contract.pdf", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

// TestSaveStripsDirectoryComponents 测试文件名中的路径成分被剥离
func TestSaveStripsDirectoryComponents(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	path, err := store.Save([]byte("%PDF-1.4"), "../escape.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.pdf"), path)
}

// TestSaveLastWriteWins 测试同名文件覆盖语义
func TestSaveLastWriteWins(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Save([]byte("first"), "same.pdf")
	require.NoError(t, err)
	path, err := store.Save([]byte("second"), "same.pdf")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	// 目录中只有一份文件,没有残留临时文件
	files, err := store.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
}

// TestListNewestFirst 测试列表按创建时间倒序
func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	older, err := store.Save([]byte("a"), "contract_1_20240101000000.pdf")
	require.NoError(t, err)
	newer, err := store.Save([]byte("b"), "contract_2_20240201000000.pdf")
	require.NoError(t, err)

	// 人为拉开修改时间,避免文件系统时间粒度问题
	now := time.Now()
	require.NoError(t, os.Chtimes(older, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, os.Chtimes(newer, now, now))

	// 非 PDF 文件不进入列表
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	files, err := store.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "contract_2_20240201000000.pdf", files[0].Filename)
	assert.Equal(t, "contract_1_20240101000000.pdf", files[1].Filename)
}

// TestListMissingDirectory 测试目录不存在时返回空列表
func TestListMissingDirectory(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist"))

	files, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

// TestFindByContractID 测试按合同 ID 前缀查找,最新优先
func TestFindByContractID(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	first, err := store.Save([]byte("a"), "contract_7_20240101000000.pdf")
	require.NoError(t, err)
	second, err := store.Save([]byte("b"), "contract_7_20240601000000.pdf")
	require.NoError(t, err)
	_, err = store.Save([]byte("c"), "contract_70_20240601000000.pdf")
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, os.Chtimes(first, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(second, now, now))

	found, err := store.FindByContractID(7)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "contract_7_20240601000000.pdf", found.Filename)

	// 无写入时重复查找结果一致
	again, err := store.FindByContractID(7)
	require.NoError(t, err)
	assert.Equal(t, found, again)

	all, err := store.FindAllByContractID(7)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	missing, err := store.FindByContractID(99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// TestDelete 测试删除语义: 不存在或非 PDF 返回 false 而不报错
func TestDelete(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Save([]byte("a"), "contract_1_20240101000000.pdf")
	require.NoError(t, err)

	removed, err := store.Delete("contract_1_20240101000000.pdf")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete("contract_1_20240101000000.pdf")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = store.Delete("notes.txt")
	require.NoError(t, err)
	assert.False(t, removed)
}

// TestCleanupAgeBoundary 测试清理的整天取整与严格大于语义
// 阈值 30 天时: 29 天和 30 天整的文件保留,31 天的删除
func TestCleanupAgeBoundary(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	makeAged := func(name string, age time.Duration) {
		path, err := store.Save([]byte("x"), name)
		require.NoError(t, err)
		ts := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(path, ts, ts))
	}

	makeAged("contract_1_20240101000000.pdf", 29*24*time.Hour)
	makeAged("contract_2_20240101000000.pdf", 30*24*time.Hour)
	makeAged("contract_3_20240101000000.pdf", 31*24*time.Hour)

	deleted, err := store.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	files, err := store.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.NotEqual(t, "contract_3_20240101000000.pdf", f.Filename)
	}
}

// TestCleanupMissingDirectory 测试目录不存在时清理是空操作
func TestCleanupMissingDirectory(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist"))

	deleted, err := store.Cleanup(30)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
