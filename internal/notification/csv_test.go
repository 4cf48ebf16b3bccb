package notification

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMetadataFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metadata.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestReadCSV_Basic(t *testing.T) {
	path := writeMetadataFile(t,
		"DEMIS_NOTIFICATION_ID;FILE_1_NAME;FILE_2_NAME;HOST_SEX;SEQUENCING_LAB_NAME\n"+
			"notif-1;r1.fastq.gz;r2.fastq.gz;male;Lab Alpha\n"+
			"notif-2;single.fasta;;female;Lab Beta\n")

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "notif-1", rows[0].DemisNotificationID)
	assert.Equal(t, "r1.fastq.gz", rows[0].File1Name)
	assert.Equal(t, "r2.fastq.gz", rows[0].File2Name)
	assert.Equal(t, "male", rows[0].HostSex)
	assert.Equal(t, "Lab Alpha", rows[0].SequencingLabName)

	assert.Equal(t, []string{"r1.fastq.gz", "r2.fastq.gz"}, rows[0].FileNames())
	assert.Equal(t, []string{"single.fasta"}, rows[1].FileNames())
}

func TestReadCSV_UnknownColumnsIgnored(t *testing.T) {
	path := writeMetadataFile(t,
		"DEMIS_NOTIFICATION_ID;SOME_FUTURE_COLUMN;FILE_1_NAME\n"+
			"notif-1;whatever;r1.fastq\n")

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "notif-1", rows[0].DemisNotificationID)
	assert.Equal(t, "r1.fastq", rows[0].File1Name)
}

func TestReadCSV_ShortRecordYieldsEmptyFields(t *testing.T) {
	path := writeMetadataFile(t,
		"DEMIS_NOTIFICATION_ID;FILE_1_NAME;FILE_2_NAME\n"+
			"notif-1;r1.fastq\n")

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "r1.fastq", rows[0].File1Name)
	assert.Empty(t, rows[0].File2Name)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	path := writeMetadataFile(t, "DEMIS_NOTIFICATION_ID;FILE_1_NAME\n")

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadCSV_MissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening metadata file")
}

func TestReadCSV_SemicolonInsideQuotes(t *testing.T) {
	path := writeMetadataFile(t,
		"DEMIS_NOTIFICATION_ID;SEQUENCING_LAB_NAME\n"+
			`notif-1;"Institut; Abteilung 3"`+"\n")

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Institut; Abteilung 3", rows[0].SequencingLabName)
}
