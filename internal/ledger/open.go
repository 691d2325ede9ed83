package ledger

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/jo-hoe/socialpost/internal/common"
)

// Open selects the ledger implementation for backend.
func Open(fs afero.Fs, backend, path string) (Ledger, error) {
	switch backend {
	case "", common.LedgerBackendJSON:
		l, err := OpenJSON(fs, path)
		if err != nil {
			return nil, err
		}
		return l, nil
	case common.LedgerBackendSQLite:
		l, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", backend)
	}
}
