package repo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/grit/pkg/object"
)

const zeroHash = "0000000000000000000000000000000000000000"

// ReflogEntry is one line of .grit/logs/<ref>:
//
//	<old> <new> Name <email> unix tz<TAB>reason
type ReflogEntry struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Who     object.Signature
	Reason  string
}

func (r *Repo) appendReflog(ref string, oldHash, newHash object.Hash, reason string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	reason = strings.TrimSpace(strings.ReplaceAll(reason, "\n", " "))
	if reason == "" {
		reason = "update"
	}

	logPath := filepath.Join(r.GritDir, "logs", filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("reflog mkdir: %w", err)
	}

	line := fmt.Sprintf("%s %s %s\t%s\n",
		orZeroHash(oldHash), orZeroHash(newHash), object.FormatSignature(r.reflogIdentity()), reason)

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog open: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("reflog write: %w", err)
	}
	return nil
}

func orZeroHash(h object.Hash) string {
	if strings.TrimSpace(string(h)) == "" {
		return zeroHash
	}
	return string(h)
}

// reflogIdentity is the configured identity, or a placeholder when the
// config cannot supply one. A reflog line is never dropped for lack of a name.
func (r *Repo) reflogIdentity() object.Signature {
	cfg, err := r.ReadConfig()
	if err == nil {
		if sig, err := cfg.Identity(timeNow()); err == nil {
			return sig
		}
	}
	sig := object.Signature{Name: "unknown", Email: "unknown"}
	now := timeNow()
	sig.When = now.Unix()
	sig.Timezone = now.Format("-0700")
	return sig
}

// ReadReflog returns reflog entries for ref, newest first. limit <= 0 means
// all entries. Lines that do not parse are skipped.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	refName := r.resolveReflogRefName(ref)

	logPath := filepath.Join(r.GritDir, "logs", filepath.FromSlash(refName))
	f, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reflog: %w", err)
	}
	defer f.Close()

	var entries []ReflogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		e, ok := parseReflogLine(refName, scanner.Text())
		if !ok {
			r.log.Debug("skipping malformed reflog line", "ref", refName, "line", scanner.Text())
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func parseReflogLine(ref, line string) (ReflogEntry, bool) {
	head, reason, ok := strings.Cut(line, "\t")
	if !ok {
		return ReflogEntry{}, false
	}
	parts := strings.SplitN(head, " ", 3)
	if len(parts) != 3 {
		return ReflogEntry{}, false
	}
	who, err := object.ParseSignature(parts[2])
	if err != nil {
		return ReflogEntry{}, false
	}
	return ReflogEntry{
		Ref:     ref,
		OldHash: object.Hash(parts[0]),
		NewHash: object.Hash(parts[1]),
		Who:     who,
		Reason:  reason,
	}, true
}

func (r *Repo) resolveReflogRefName(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "HEAD" {
		head, err := r.Head()
		if err == nil && strings.HasPrefix(head, "refs/") {
			return head
		}
		return "HEAD"
	}
	if strings.HasPrefix(ref, "refs/") {
		return ref
	}
	return "refs/heads/" + ref
}
