package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// StorageError 文件存储错误
// 携带操作名与路径,便于定位问题;不自动重试
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("pdf storage %s failed on %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// FileInfo 生成的 PDF 文件元数据
// 每次列目录时从文件系统 stat 实时取得,不做缓存
type FileInfo struct {
	Filename   string    `json:"filename"`
	Path       string    `json:"file_path"`
	SizeBytes  int64     `json:"size_bytes"`
	SizeMB     float64   `json:"size_mb"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// FileStore 生成的 PDF 文件存储
// 管理单层平铺目录,目录列表是唯一的文件目录册,
// 文件与合同的关联仅靠 contract_{id}_ 文件名前缀约定
type FileStore struct {
	dir string
}

// NewFileStore 创建文件存储
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir 输出目录
func (s *FileStore) Dir() string {
	return s.dir
}

// DefaultFilename 按约定生成文件名: contract_{id}_{14位时间戳}.pdf
func DefaultFilename(contractID uint) string {
	return fmt.Sprintf("contract_%d_%s.pdf", contractID, time.Now().Format("20060102150405"))
}

// ContractIDPrefix 文件名关联前缀
func ContractIDPrefix(contractID uint) string {
	return fmt.Sprintf("contract_%d_", contractID)
}

// Save 保存 PDF 字节流,返回完整路径
// 文件名缺少 .pdf 扩展名时自动补上;同名文件静默覆盖(last-write-wins);
// 先写临时文件再重命名,避免并发写者互相覆盖出半成品
func (s *FileStore) Save(data []byte, filename string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &StorageError{Op: "save", Path: s.dir, Err: err}
	}

	filename = filepath.Base(filename)
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		filename += ".pdf"
	}
	path := filepath.Join(s.dir, filename)

	tmp, err := os.CreateTemp(s.dir, ".tmp-*.pdf")
	if err != nil {
		return "", &StorageError{Op: "save", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &StorageError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &StorageError{Op: "save", Path: path, Err: err}
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", &StorageError{Op: "save", Path: path, Err: err}
	}

	return path, nil
}

// List 列出目录中所有 PDF 文件,按创建时间倒序(最新在前)
// 非 PDF 文件被忽略;目录不存在时返回空列表
func (s *FileStore) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "list", Path: s.dir, Err: err}
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}

		// 文件可能在列目录与 stat 之间被清理任务删除,
		// 这是正常可恢复情况,跳过即可
		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Filename:   entry.Name(),
			Path:       filepath.Join(s.dir, entry.Name()),
			SizeBytes:  info.Size(),
			SizeMB:     float64(info.Size()) / (1024 * 1024),
			CreatedAt:  info.ModTime(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.After(files[j].CreatedAt)
		}
		return files[i].Filename > files[j].Filename
	})

	return files, nil
}

// FindByContractID 按合同 ID 查找第一个关联文件(最新优先)
// 同一合同存在多个文件时只返回最近的一个;没有关联文件时返回 nil
func (s *FileStore) FindByContractID(contractID uint) (*FileInfo, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}

	needle := ContractIDPrefix(contractID)
	for i := range files {
		if strings.Contains(files[i].Filename, needle) {
			return &files[i], nil
		}
	}
	return nil, nil
}

// FindAllByContractID 按合同 ID 查找所有关联文件
func (s *FileStore) FindAllByContractID(contractID uint) ([]FileInfo, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}

	needle := ContractIDPrefix(contractID)
	var matched []FileInfo
	for _, f := range files {
		if strings.Contains(f.Filename, needle) {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

// Delete 删除指定 PDF 文件
// 文件不存在或不是 PDF 时返回 false 而不报错;仅底层 IO 失败时返回错误
func (s *FileStore) Delete(filename string) (bool, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return false, nil
	}

	path := filepath.Join(s.dir, filepath.Base(filename))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &StorageError{Op: "delete", Path: path, Err: err}
	}
	return true, nil
}

// Cleanup 删除超过指定天数的 PDF 文件,返回删除数量
// 文件年龄按整天取整后与阈值做严格大于比较:
// 30 天整的文件保留,31 天的删除;目录不存在时是 0 值空操作
func (s *FileStore) Cleanup(maxAgeDays int) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, &StorageError{Op: "cleanup", Path: s.dir, Err: err}
	}

	now := time.Now()
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		ageDays := int(now.Sub(info.ModTime()).Hours() / 24)
		if ageDays > maxAgeDays {
			path := filepath.Join(s.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return deleted, &StorageError{Op: "cleanup", Path: path, Err: err}
			}
			deleted++
		}
	}

	return deleted, nil
}
