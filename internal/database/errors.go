package database

import (
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"

	"github.com/Ramsey-B/sorrel/pkg/dvferr"
)

// ClassifyError maps a storage-level error onto the pipeline taxonomy.
// Connection/transport failures become StorageUnavailable; constraint
// violations become IntegrityConflict. Anything else is passed through.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, driver.ErrBadConn) {
		return dvferr.Wrap(dvferr.KindStorageUnavailable, err, "lost database connection")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return dvferr.Wrap(dvferr.KindStorageUnavailable, err, "database unreachable")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08": // connection exception
			return dvferr.Wrap(dvferr.KindStorageUnavailable, err, "database connection failure")
		case pqErr.Code == "23505": // unique_violation
			return dvferr.Wrap(dvferr.KindIntegrityConflict, err, "unexpected uniqueness violation")
		case pqErr.Code.Class() == "23": // other integrity constraint violations
			return dvferr.Wrap(dvferr.KindIntegrityConflict, err, "constraint violation")
		}
	}

	return err
}
