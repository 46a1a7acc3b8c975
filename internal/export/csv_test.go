package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom-system/internal/services/allocation/handler"
)

func TestWriteSnapshot(t *testing.T) {
	rows := []handler.SnapshotRow{
		{ID: 1, QtyPrev: 3, Avail: 10, QtyReq: 20, QtyPres: 5},
		{ID: 2, QtyPrev: 0, Avail: 0, QtyReq: 8, QtyPres: 0},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, rows))

	// The header, column order and CRLF record terminators are a
	// compatibility contract; this byte comparison is deliberate.
	want := "Id,Previous semester,Available,Quantity Required,Quantity present\r\n" +
		"1,3,10,20,5\r\n" +
		"2,0,0,8,0\r\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSnapshotEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, nil))
	assert.Equal(t, "Id,Previous semester,Available,Quantity Required,Quantity present\r\n", buf.String())
}
