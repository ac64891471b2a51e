package dedupe

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

type opKind int

const (
	opRename opKind = iota
	opRemove
)

// op is one filesystem change made while deduplicating an item.
//
// For a rename, from was moved to to. For a remove, from was deleted
// because to held the same content.
type op struct {
	kind opKind
	from string
	to   string
}

// journal records the changes made to one item so they can be reverted.
type journal struct {
	ops []op
}

func (j *journal) rename(from, to string) error {
	if _, err := os.Lstat(to); err == nil {
		return fmt.Errorf("cannot rename %s: %s already exists", from, to)
	}
	if err := os.Rename(from, to); err != nil {
		return err
	}
	j.ops = append(j.ops, op{kind: opRename, from: from, to: to})
	return nil
}

func (j *journal) remove(path, survivor string) error {
	if err := os.Remove(path); err != nil {
		return err
	}
	j.ops = append(j.ops, op{kind: opRemove, from: path, to: survivor})
	return nil
}

// rollback replays the journal backwards. Renames are undone and removed
// duplicates are recreated by copying their surviving twin. Every step is
// attempted; the errors are joined.
func (j *journal) rollback() error {
	var errs []error
	for i := len(j.ops) - 1; i >= 0; i-- {
		o := j.ops[i]
		var err error
		switch o.kind {
		case opRename:
			if _, statErr := os.Lstat(o.from); statErr == nil {
				err = fmt.Errorf("%s exists, leaving %s in place", o.from, o.to)
			} else {
				err = os.Rename(o.to, o.from)
			}
		case opRemove:
			err = copyFile(o.to, o.from)
		}
		if err != nil {
			slog.Error("rollback step failed", "from", o.from, "to", o.to, "error", err)
			errs = append(errs, err)
			continue
		}
		slog.Debug("rolled back", "from", o.from, "to", o.to)
	}
	j.ops = nil
	return errors.Join(errs...)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
