package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const maxRotatingBackups = 10

var errNoValidBackup = errors.New("no valid backup found")

// Data is the raw persisted document: storage key to JSON-encoded value.
type Data map[string]string

// Load reads the key/value document from a JSON file.
// If file does not exist, it returns an empty document.
func Load(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Data{}, nil
		}
		return nil, err
	}
	return decodeData(raw)
}

// LoadWithRecovery loads the document and tries automatic recovery when the main JSON is corrupted.
// It returns an optional status message to be shown to the user.
func LoadWithRecovery(path string) (Data, string, error) {
	data, err := Load(path)
	if err == nil {
		return data, "", nil
	}
	if !isCorruptStateError(err) {
		return nil, "", err
	}

	corruptPath, moveErr := moveCorruptFile(path)
	if moveErr != nil {
		return nil, "", fmt.Errorf("move corrupt state file: %w", moveErr)
	}

	recovered, backupPath, backupErr := loadLatestValidBackup(path)
	if backupErr == nil {
		if err := Save(path, recovered); err != nil {
			return nil, "", fmt.Errorf("restore backup: %w", err)
		}
		msg := fmt.Sprintf("Corrupt state recovered from %s", filepath.Base(backupPath))
		if corruptPath != "" {
			msg += fmt.Sprintf(" (bad file moved to %s)", filepath.Base(corruptPath))
		}
		return recovered, msg, nil
	}
	if !errors.Is(backupErr, errNoValidBackup) {
		return nil, "", fmt.Errorf("inspect backups: %w", backupErr)
	}

	empty := Data{}
	if err := Save(path, empty); err != nil {
		return nil, "", fmt.Errorf("initialize state after corruption: %w", err)
	}
	msg := "Corrupt state without a valid backup; started fresh"
	if corruptPath != "" {
		msg += fmt.Sprintf(" (bad file moved to %s)", filepath.Base(corruptPath))
	}
	return empty, msg, nil
}

// Save writes the document to path as JSON.
func Save(path string, data Data) error {
	return writeJSON(path, data)
}

// Autosave writes safely using temporary file + atomic rename.
// The previous file is kept as path+".bak".
func Autosave(path string, data Data) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	if err := backupLatest(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Snapshot stores a timestamped copy of the current file and prunes old ones.
// It is taken once per session; Autosave runs far too often for rotating copies.
func Snapshot(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	timestamp := time.Now().UTC().Format("20060102-150405.000000000")
	rotatingPath := fmt.Sprintf("%s.bak.%s", path, timestamp)
	if err := os.WriteFile(rotatingPath, raw, 0o644); err != nil {
		return err
	}

	return pruneRotatingBackups(path)
}

func decodeData(raw []byte) (Data, error) {
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = Data{}
	}
	return data, nil
}

func writeJSON(path string, data Data) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	return os.WriteFile(path, raw, 0o644)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func backupLatest(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.WriteFile(path+".bak", raw, 0o644)
}

func pruneRotatingBackups(path string) error {
	files, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return err
	}
	if len(files) <= maxRotatingBackups {
		return nil
	}

	sort.Strings(files)
	toDelete := files[:len(files)-maxRotatingBackups]
	for _, old := range toDelete {
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func loadLatestValidBackup(path string) (Data, string, error) {
	candidates := make([]string, 0, maxRotatingBackups+1)
	latest := path + ".bak"
	if _, err := os.Stat(latest); err == nil {
		candidates = append(candidates, latest)
	}
	rotating, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return nil, "", err
	}
	candidates = append(candidates, rotating...)
	if len(candidates) == 0 {
		return nil, "", errNoValidBackup
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		iInfo, iErr := os.Stat(candidates[i])
		jInfo, jErr := os.Stat(candidates[j])
		if iErr != nil || jErr != nil {
			return candidates[i] > candidates[j]
		}
		return iInfo.ModTime().After(jInfo.ModTime())
	})

	for _, candidate := range candidates {
		raw, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		data, err := decodeData(raw)
		if err != nil {
			continue
		}
		return data, candidate, nil
	}

	return nil, "", errNoValidBackup
}

func moveCorruptFile(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	timestamp := time.Now().UTC().Format("20060102-150405")
	corruptName := fmt.Sprintf("%s.corrupt-%s%s", name, timestamp, ext)
	corruptPath := filepath.Join(filepath.Dir(path), corruptName)
	if err := os.Rename(path, corruptPath); err != nil {
		return "", err
	}
	return corruptPath, nil
}

func isCorruptStateError(err error) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
