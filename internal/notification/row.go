// Package notification assembles and submits the FHIR sequence
// notification bundle built from one metadata row and the document
// identifiers of its validated files.
package notification

// Row is one logical sample submission read from the metadata table.
// All fields are raw strings as delivered by the source; normalization
// happens in the bundle builder. Immutable once read.
type Row struct {
	File1Name           string
	File2Name           string
	LabSequenceID       string
	DemisNotificationID string
	Status              string
	Meldetatbestand     string
	Species             string
	SpeciesCode         string
	Author              string
	SequencingReason    string

	SequencingLabDemisLabID   string
	SequencingLabName         string
	SequencingLabEmail        string
	SequencingLabAddress      string
	SequencingLabCity         string
	SequencingLabPostalCode   string
	SequencingLabFederalState string

	PrimeDiagnosticLabDemisLabID   string
	PrimeDiagnosticLabName         string
	PrimeDiagnosticLabEmail        string
	PrimeDiagnosticLabAddress      string
	PrimeDiagnosticLabCity         string
	PrimeDiagnosticLabPostalCode   string
	PrimeDiagnosticLabFederalState string

	HostSex            string
	HostBirthYear      string
	HostBirthMonth     string
	GeographicLocation string

	Isolate             string
	IsolationSource     string
	IsolationSourceCode string
	DateOfReceiving     string
	DateOfSampling      string
	DateOfSequencing    string

	NameAmpProtocol      string
	SequencingStrategy   string
	SequencingPlatform   string
	SequencingInstrument string
	Adapter              string
	PrimerScheme         string

	RepositoryName  string
	RepositoryLink  string
	RepositoryID    string
	UploadStatus    string
	UploadDate      string
	UploadSubmitter string
}

// FileNames returns the row's associated file names, in processing order,
// skipping empty slots.
func (r *Row) FileNames() []string {
	var names []string

	if r.File1Name != "" {
		names = append(names, r.File1Name)
	}

	if r.File2Name != "" {
		names = append(names, r.File2Name)
	}

	return names
}
