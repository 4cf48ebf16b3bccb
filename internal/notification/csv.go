package notification

import (
	"encoding/csv"
	"fmt"
	"os"
)

// ReadCSV parses a semicolon-delimited, UTF-8 metadata file with a header
// row into Rows. Unknown columns are ignored; missing columns yield empty
// fields.
func ReadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("notification: opening metadata file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("notification: parsing %s: %w", path, err)
	}

	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	rows := make([]Row, 0, len(records)-1)

	for _, record := range records[1:] {
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				fields[name] = record[i]
			}
		}

		rows = append(rows, rowFromFields(fields))
	}

	return rows, nil
}

// rowFromFields maps the metadata column names onto a Row.
func rowFromFields(m map[string]string) Row {
	return Row{
		File1Name:           m["FILE_1_NAME"],
		File2Name:           m["FILE_2_NAME"],
		LabSequenceID:       m["LAB_SEQUENCE_ID"],
		DemisNotificationID: m["DEMIS_NOTIFICATION_ID"],
		Status:              m["STATUS"],
		Meldetatbestand:     m["MELDETATBESTAND"],
		Species:             m["SPECIES"],
		SpeciesCode:         m["SPECIES_CODE"],
		Author:              m["AUTHOR"],
		SequencingReason:    m["SEQUENCING_REASON"],

		SequencingLabDemisLabID:   m["SEQUENCING_LAB_DEMIS_LAB_ID"],
		SequencingLabName:         m["SEQUENCING_LAB_NAME"],
		SequencingLabEmail:        m["SEQUENCING_LAB_EMAIL"],
		SequencingLabAddress:      m["SEQUENCING_LAB_ADDRESS"],
		SequencingLabCity:         m["SEQUENCING_LAB_CITY"],
		SequencingLabPostalCode:   m["SEQUENCING_LAB_POSTAL_CODE"],
		SequencingLabFederalState: m["SEQUENCING_LAB_FEDERAL_STATE"],

		PrimeDiagnosticLabDemisLabID:   m["PRIME_DIAGNOSTIC_LAB_DEMIS_LAB_ID"],
		PrimeDiagnosticLabName:         m["PRIME_DIAGNOSTIC_LAB_NAME"],
		PrimeDiagnosticLabEmail:        m["PRIME_DIAGNOSTIC_LAB_EMAIL"],
		PrimeDiagnosticLabAddress:      m["PRIME_DIAGNOSTIC_LAB_ADDRESS"],
		PrimeDiagnosticLabCity:         m["PRIME_DIAGNOSTIC_LAB_CITY"],
		PrimeDiagnosticLabPostalCode:   m["PRIME_DIAGNOSTIC_LAB_POSTAL_CODE"],
		PrimeDiagnosticLabFederalState: m["PRIME_DIAGNOSTIC_LAB_FEDERAL_STATE"],

		HostSex:            m["HOST_SEX"],
		HostBirthYear:      m["HOST_BIRTH_YEAR"],
		HostBirthMonth:     m["HOST_BIRTH_MONTH"],
		GeographicLocation: m["GEOGRAPHIC_LOCATION"],

		Isolate:             m["ISOLATE"],
		IsolationSource:     m["ISOLATION_SOURCE"],
		IsolationSourceCode: m["ISOLATION_SOURCE_CODE"],
		DateOfReceiving:     m["DATE_OF_RECEIVING"],
		DateOfSampling:      m["DATE_OF_SAMPLING"],
		DateOfSequencing:    m["DATE_OF_SEQUENCING"],

		NameAmpProtocol:      m["NAME_AMP_PROTOCOL"],
		SequencingStrategy:   m["SEQUENCING_STRATEGY"],
		SequencingPlatform:   m["SEQUENCING_PLATFORM"],
		SequencingInstrument: m["SEQUENCING_INSTRUMENT"],
		Adapter:              m["ADAPTER"],
		PrimerScheme:         m["PRIMER_SCHEME"],

		RepositoryName:  m["REPOSITORY_NAME"],
		RepositoryLink:  m["REPOSITORY_LINK"],
		RepositoryID:    m["REPOSITORY_ID"],
		UploadStatus:    m["UPLOAD_STATUS"],
		UploadDate:      m["UPLOAD_DATE"],
		UploadSubmitter: m["UPLOAD_SUBMITTER"],
	}
}
