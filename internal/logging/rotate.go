package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// rotatingFile is an io.Writer that rolls the log over to numbered
// backups (app.1.log, app.2.log, ...) once it grows past maxSize.
type rotatingFile struct {
	mu         sync.Mutex
	path       string
	file       *os.File
	maxSize    int64
	maxBackups int
}

func openRotatingFile(path string, maxSizeMB, maxBackups int) (*rotatingFile, error) {
	rf := &rotatingFile{
		path:       path,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
	}
	if rf.maxSize == 0 {
		rf.maxSize = 10 * 1024 * 1024
	}
	if rf.maxBackups == 0 {
		rf.maxBackups = 5
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *rotatingFile) open() error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}
	rf.file = f
	return nil
}

func (rf *rotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if err := rf.checkRotation(int64(len(p))); err != nil {
		fmt.Fprintf(os.Stderr, "log rotation error: %v\n", err)
	}
	if rf.file == nil {
		return len(p), nil
	}
	return rf.file.Write(p)
}

func (rf *rotatingFile) checkRotation(incoming int64) error {
	if rf.file == nil {
		return nil
	}
	info, err := rf.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 || info.Size()+incoming <= rf.maxSize {
		return nil
	}

	rf.file.Close()
	rf.file = nil
	rotErr := rotateFiles(rf.path, rf.maxBackups)
	if err := rf.open(); err != nil {
		return err
	}
	return rotErr
}

func (rf *rotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

func rotateFiles(basePath string, maxBackups int) error {
	dir := filepath.Dir(basePath)
	base := filepath.Base(basePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	backups, err := findBackups(dir, name, ext)
	if err != nil {
		return err
	}

	sort.Sort(sort.Reverse(sort.IntSlice(backups)))

	for _, num := range backups {
		if num >= maxBackups {
			oldPath := filepath.Join(dir, fmt.Sprintf("%s.%d%s", name, num, ext))
			os.Remove(oldPath)
			continue
		}
		oldPath := filepath.Join(dir, fmt.Sprintf("%s.%d%s", name, num, ext))
		newPath := filepath.Join(dir, fmt.Sprintf("%s.%d%s", name, num+1, ext))
		if err := os.Rename(oldPath, newPath); err != nil {
			return fmt.Errorf("failed to rotate %s to %s: %w", oldPath, newPath, err)
		}
	}

	if _, err := os.Stat(basePath); err == nil {
		rotatedPath := filepath.Join(dir, fmt.Sprintf("%s.1%s", name, ext))
		if err := os.Rename(basePath, rotatedPath); err != nil {
			return fmt.Errorf("failed to rotate current log: %w", err)
		}
	}

	return nil
}

func findBackups(dir, name, ext string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var backups []int
	prefix := name + "."
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fname := entry.Name()
		if !strings.HasPrefix(fname, prefix) {
			continue
		}
		if !strings.HasSuffix(fname, ext) {
			continue
		}

		numStr := strings.TrimSuffix(strings.TrimPrefix(fname, prefix), ext)
		num, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		backups = append(backups, num)
	}

	return backups, nil
}
