package supervisor

import (
	"io"
	"os"
	"path/filepath"
	"time"
)

// backupTimeFormat renders the timestamped backup directory name,
// matching spec.md §4.4's "<YYYY_MMDD_HHMMSS>".
const backupTimeFormat = "2006_0102_150405"

// backupWorld recursively copies srcDir into destRoot/<timestamp>,
// creating directories as needed, and returns the created directory's
// name and the total number of bytes copied. now is injected so tests
// can assert on the resulting directory name.
func backupWorld(srcDir, destRoot string, now time.Time) (dirName string, totalBytes int64, err error) {
	dirName = now.Format(backupTimeFormat)
	dest := filepath.Join(destRoot, dirName)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", 0, err
	}

	total, err := copyTree(srcDir, dest)
	if err != nil {
		return "", 0, err
	}
	return dirName, total, nil
}

// copyTree copies every file under src into dst, preserving the
// directory structure, and returns the sum of copied file sizes.
func copyTree(src, dst string) (int64, error) {
	var total int64

	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		n, err := copyFile(path, target)
		if err != nil {
			return err
		}
		total += n
		return nil
	})

	return total, err
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	return io.Copy(out, in)
}
