package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestArchiveKey(t *testing.T) {
	id := uuid.MustParse("6f1c1e9e-8a43-4f7e-9f8a-3b1f2d7c9a10")

	assert.Equal(t, "uploads/"+id.String()+"/customers.csv", ArchiveKey(id, "customers.csv"))
	assert.Equal(t, "uploads/"+id.String()+"/sales.xlsx", ArchiveKey(id, "../../etc/sales.xlsx"))
	assert.Equal(t, "uploads/"+id.String()+"/q1.xls", ArchiveKey(id, `C:\reports\q1.xls`))
	assert.Equal(t, "uploads/"+id.String()+"/upload", ArchiveKey(id, ""))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", ContentType("a.CSV"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ContentType("b.xlsx"))
	assert.Equal(t, "application/vnd.ms-excel", ContentType("c.xls"))
	assert.Equal(t, "application/octet-stream", ContentType("d.json"))
}
