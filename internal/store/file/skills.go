package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlevelbuilder/agentbridge/internal/skills"
	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// FileSkillStore wraps skills.Loader to implement store.SkillStore for
// standalone mode, where skill bundles live as SKILL.md files on disk rather
// than rows in Postgres.
type FileSkillStore struct {
	loader *skills.Loader
}

func NewFileSkillStore(loader *skills.Loader) *FileSkillStore {
	return &FileSkillStore{loader: loader}
}

func (f *FileSkillStore) List(ctx context.Context) ([]store.SkillRecord, error) {
	infos := f.loader.ListSkills()
	out := make([]store.SkillRecord, 0, len(infos))
	for _, info := range infos {
		content, _ := f.loader.GetContent(info.Name)
		out = append(out, store.SkillRecord{
			Name:        info.Name,
			Description: info.Description,
			Content:     content,
			Path:        info.Path,
		})
	}
	return out, nil
}

func (f *FileSkillStore) Get(ctx context.Context, name string) (*store.SkillRecord, error) {
	info, ok := f.loader.GetInfo(name)
	if !ok {
		return nil, nil
	}
	content, _ := f.loader.GetContent(name)
	return &store.SkillRecord{Name: info.Name, Description: info.Description, Content: content, Path: info.Path}, nil
}

func (f *FileSkillStore) Create(ctx context.Context, rec store.SkillRecord) error {
	return f.write(rec)
}

func (f *FileSkillStore) Update(ctx context.Context, rec store.SkillRecord) error {
	return f.write(rec)
}

func (f *FileSkillStore) Delete(ctx context.Context, name string) error {
	dir, ok := f.loader.WritableDir()
	if !ok {
		return fmt.Errorf("no writable skills directory configured")
	}
	if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("delete skill %s: %w", name, err)
	}
	f.loader.Reload()
	return nil
}

func (f *FileSkillStore) write(rec store.SkillRecord) error {
	dir, ok := f.loader.WritableDir()
	if !ok {
		return fmt.Errorf("no writable skills directory configured")
	}
	skillDir := filepath.Join(dir, rec.Name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		return fmt.Errorf("create skill directory %s: %w", skillDir, err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("name: %s\n", rec.Name))
	sb.WriteString(fmt.Sprintf("description: %s\n", rec.Description))
	sb.WriteString("---\n")
	sb.WriteString(rec.Content)

	path := filepath.Join(skillDir, "SKILL.md")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	f.loader.Reload()
	return nil
}
