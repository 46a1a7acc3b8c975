// Package export serializes ledger snapshots to the downloadable CSV.
// The header and column order are a compatibility contract with the
// spreadsheets built on previous exports and must not change.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"stockroom-system/internal/services/allocation/handler"
)

var csvHeader = []string{"Id", "Previous semester", "Available", "Quantity Required", "Quantity present"}

func WriteSnapshot(w io.Writer, rows []handler.SnapshotRow) error {
	writer := csv.NewWriter(w)
	// The historical exporter terminated records with CRLF; spreadsheets
	// built on those files depend on it.
	writer.UseCRLF = true

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.ID, 10),
			strconv.FormatInt(int64(row.QtyPrev), 10),
			strconv.FormatInt(int64(row.Avail), 10),
			strconv.FormatInt(int64(row.QtyReq), 10),
			strconv.FormatInt(int64(row.QtyPres), 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
