package store

import (
	"fmt"
	"math/big"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"dossier/internal/domain"
)

const dossiersFile = "dossiers.json"

// DossierFileStore persists the local dossier index to disk.
type DossierFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewDossierFileStore returns a DossierFileStore rooted at dir.
func NewDossierFileStore(dir string) *DossierFileStore {
	return &DossierFileStore{dir: dir}
}

// SaveDossier stores or updates d.
func (s *DossierFileStore) SaveDossier(d domain.Dossier) error {
	if d.ID == nil {
		return fmt.Errorf("store: dossier without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, dossiersFile)
	all := make(map[string]domain.Dossier)
	if err := loadJSON(path, &all); err != nil {
		return err
	}
	all[dossierKey(d.Owner, d.ID)] = d
	return storeJSON(path, all, 0o600)
}

// LoadDossier retrieves the dossier for (owner, id).
func (s *DossierFileStore) LoadDossier(owner common.Address, id *big.Int) (domain.Dossier, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make(map[string]domain.Dossier)
	if err := loadJSON(filepath.Join(s.dir, dossiersFile), &all); err != nil {
		return domain.Dossier{}, false, err
	}
	d, ok := all[dossierKey(owner, id)]
	return d, ok, nil
}

// ListDossiers returns every dossier owned by owner, ordered by id.
func (s *DossierFileStore) ListDossiers(owner common.Address) ([]domain.Dossier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make(map[string]domain.Dossier)
	if err := loadJSON(filepath.Join(s.dir, dossiersFile), &all); err != nil {
		return nil, err
	}
	prefix := strings.ToLower(owner.Hex()) + "|"
	var out []domain.Dossier
	for k, d := range all {
		if strings.HasPrefix(k, prefix) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Cmp(out[j].ID) < 0 })
	return out, nil
}

func dossierKey(owner common.Address, id *big.Int) string {
	return fmt.Sprintf("%s|%s", strings.ToLower(owner.Hex()), id.String())
}

// Compile-time assertion that DossierFileStore implements domain.DossierIndex.
var _ domain.DossierIndex = (*DossierFileStore)(nil)
