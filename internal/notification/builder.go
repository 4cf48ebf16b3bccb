package notification

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile and naming system bases fixed by the DEMIS IGS profiles.
const (
	igsBase     = "https://demis.rki.de/fhir/igs"
	demisBase   = "https://demis.rki.de/fhir"
	snomedSys   = "http://snomed.info/sct"
	loincSys    = "http://loinc.org"
	labIDSystem = "https://demis.rki.de/fhir/NamingSystem/DemisLaboratoryId"
)

// Organization placeholder defaults. The notifying facility is mandatory
// in the bundle, so missing fields are filled rather than omitted.
const (
	defaultLabName    = "Unknown laboratory"
	defaultLabEmail   = "noreply@example.org"
	defaultLabAddress = "Unknown street 1"
	defaultLabCity    = "Unbekannt"
	defaultLabPostal  = "00000"
	defaultLabState   = "DE-XX"
)

// obj and arr keep the deeply nested bundle construction readable. The
// tree is dynamic by design: the final Prune pass removes every empty
// optional shell, which typed structs with omitempty cannot express for
// nested conditionals.
type (
	obj = map[string]any
	arr = []any
)

// Builder assembles notification bundles. Build is deterministic given
// fixed NewID and Now, which tests inject; production uses UUIDs and the
// wall clock, both captured once per call.
type Builder struct {
	fhirBase string

	NewID func() string
	Now   func() time.Time
}

// NewBuilder creates a Builder for the given backend base URL.
func NewBuilder(baseURL string) *Builder {
	return &Builder{
		fhirBase: strings.TrimRight(baseURL, "/") + "/fhir",
		NewID:    uuid.NewString,
		Now:      time.Now,
	}
}

// bundleIDs holds the fresh resource identifiers generated once per build.
// The composition reuses the row's externally supplied notification id.
type bundleIDs struct {
	patient     string
	org         string
	role        string
	subOrg      string
	subRole     string
	specimen    string
	device      string
	adapter1    string
	adapter2    string
	primer      string
	sequence    string
	observation string
	report      string
}

// entry wraps a resource in the common bundle envelope.
func entry(kind, id string, resource obj) obj {
	return obj{
		"fullUrl":  igsBase + "/" + kind + "/" + id,
		"resource": resource,
	}
}

func ref(kind, id string) obj {
	return obj{"reference": kind + "/" + id}
}

func profileMeta(profile string) obj {
	return obj{"profile": arr{profile}}
}

// Build assembles the notification bundle for one row and the document
// identifiers of its validated files (up to two, in processing order).
func (b *Builder) Build(row Row, docIDs []string) obj {
	now := b.Now().UTC().Format(time.RFC3339)

	ids := bundleIDs{
		patient:     b.NewID(),
		org:         b.NewID(),
		role:        b.NewID(),
		subOrg:      b.NewID(),
		subRole:     b.NewID(),
		specimen:    b.NewID(),
		device:      b.NewID(),
		adapter1:    b.NewID(),
		adapter2:    b.NewID(),
		primer:      b.NewID(),
		sequence:    b.NewID(),
		observation: b.NewID(),
		report:      b.NewID(),
	}

	orgEntry := b.notifierOrganization(row, ids)
	roleEntry := b.notifierRole(ids)
	subOrgEntry, subRoleEntry := b.submittingLab(row, ids)
	patientEntry := b.patient(row, ids)
	adapter1Entry, adapter2Entry, primerEntry := b.substances(row, ids)
	specimenEntry := b.specimen(row, ids, subRoleEntry != nil)
	deviceEntry := b.device(row, ids)
	sequenceEntry := b.molecularSequence(row, ids, docIDs)
	observationEntry := b.observation(row, ids)
	reportEntry := b.diagnosticReport(row, ids, now)
	compositionEntry := b.composition(row, ids, now)

	entries := arr{compositionEntry, patientEntry, roleEntry, orgEntry}

	if subRoleEntry != nil {
		entries = append(entries, subRoleEntry)
	}

	if subOrgEntry != nil {
		entries = append(entries, subOrgEntry)
	}

	entries = append(entries, specimenEntry, deviceEntry, adapter1Entry, adapter2Entry)

	if primerEntry != nil {
		entries = append(entries, primerEntry)
	}

	entries = append(entries, sequenceEntry, observationEntry, reportEntry)

	bundle := obj{
		"resourceType": "Bundle",
		"meta": obj{
			"lastUpdated": now,
			"profile":     arr{igsBase + "/StructureDefinition/NotificationBundleSequence"},
		},
		"identifier": obj{
			"system": demisBase + "/NamingSystem/NotificationBundleId",
			"value":  row.DemisNotificationID,
		},
		"type":      "document",
		"timestamp": now,
		"entry":     entries,
	}

	pruned, _ := Prune(bundle).(obj)

	return pruned
}

// notifierOrganization is the sequencing lab. Always emitted; required
// fields fall back to fixed placeholders when the row leaves them blank.
func (b *Builder) notifierOrganization(row Row, ids bundleIDs) obj {
	name := trimmed(row.SequencingLabName)
	if name == "" {
		name = defaultLabName
	}

	email := row.SequencingLabEmail
	if !validEmail(email) {
		email = defaultLabEmail
	}

	line := fallback(row.SequencingLabAddress, defaultLabAddress)
	city := fallback(row.SequencingLabCity, defaultLabCity)
	postal := fallback(row.SequencingLabPostalCode, defaultLabPostal)
	state := fallback(row.SequencingLabFederalState, defaultLabState)

	resource := obj{
		"resourceType": "Organization",
		"id":           ids.org,
		"meta":         profileMeta(demisBase + "/StructureDefinition/NotifierFacility"),
		"type": arr{obj{"coding": arr{obj{
			"system":  demisBase + "/CodeSystem/organizationType",
			"code":    "refLab",
			"display": "Einrichtung der Spezialdiagnostik",
		}}}},
		"name":    name,
		"telecom": arr{obj{"system": "email", "value": email, "use": "work"}},
		"address": arr{obj{
			"line":       arr{line},
			"city":       city,
			"postalCode": postal,
			"country":    "DE",
			"state":      state,
		}},
	}

	if labID := trimmed(row.SequencingLabDemisLabID); labID != "" {
		resource["identifier"] = arr{obj{"system": labIDSystem, "value": labID}}
	}

	return entry("Organization", ids.org, resource)
}

func (b *Builder) notifierRole(ids bundleIDs) obj {
	return entry("PractitionerRole", ids.role, obj{
		"resourceType": "PractitionerRole",
		"id":           ids.role,
		"meta":         profileMeta(demisBase + "/StructureDefinition/NotifierRole"),
		"organization": ref("Organization", ids.org),
	})
}

// submittingLab emits the primary diagnostic lab's organization and role
// only when the row provides a usable email and at least one address
// component. No placeholders are synthesized here, unlike the notifier.
// The stricter profile tag is attached only when both telecom and address
// are present.
func (b *Builder) submittingLab(row Row, ids bundleIDs) (orgEntry, roleEntry obj) {
	name := trimmed(row.PrimeDiagnosticLabName)
	labID := trimmed(row.PrimeDiagnosticLabDemisLabID)
	line := trimmed(row.PrimeDiagnosticLabAddress)
	city := trimmed(row.PrimeDiagnosticLabCity)
	postal := trimmed(row.PrimeDiagnosticLabPostalCode)
	state := fallback(row.PrimeDiagnosticLabFederalState, defaultLabState)

	var email string
	if validEmail(row.PrimeDiagnosticLabEmail) {
		email = trimmed(row.PrimeDiagnosticLabEmail)
	}

	hasTelecom := email != ""
	hasAddress := line != "" || city != "" || postal != ""
	canClaimProfile := hasTelecom && hasAddress

	resource := obj{
		"resourceType": "Organization",
		"id":           ids.subOrg,
	}

	if canClaimProfile {
		resource["meta"] = profileMeta(demisBase + "/StructureDefinition/SubmittingFacility")
	}

	if labID != "" {
		resource["identifier"] = arr{obj{"system": labIDSystem, "value": labID}}
	}

	if name != "" {
		resource["name"] = name
	}

	if hasTelecom {
		resource["telecom"] = arr{obj{"system": "email", "value": email, "use": "work"}}
	}

	if hasAddress {
		address := obj{"country": "DE", "state": state}

		if line != "" {
			address["line"] = arr{line}
		}

		if city != "" {
			address["city"] = city
		}

		if postal != "" {
			address["postalCode"] = postal
		}

		resource["address"] = arr{address}
	}

	// Drop the whole pair when the row contributed nothing beyond the
	// mandatory envelope fields.
	present := false

	for k := range resource {
		if k != "resourceType" && k != "id" && k != "meta" {
			present = true

			break
		}
	}

	if !present {
		return nil, nil
	}

	role := obj{
		"resourceType": "PractitionerRole",
		"id":           ids.subRole,
		"organization": ref("Organization", ids.subOrg),
	}

	if canClaimProfile {
		role["meta"] = profileMeta(demisBase + "/StructureDefinition/SubmittingRole")
	}

	return entry("Organization", ids.subOrg, resource),
		entry("PractitionerRole", ids.subRole, role)
}

func (b *Builder) patient(row Row, ids bundleIDs) obj {
	resource := obj{
		"resourceType": "Patient",
		"id":           ids.patient,
		"meta":         profileMeta(demisBase + "/StructureDefinition/NotifiedPersonNotByName"),
		"address": arr{obj{
			"extension": arr{obj{
				"url": demisBase + "/StructureDefinition/AddressUse",
				"valueCoding": obj{
					"system": demisBase + "/CodeSystem/addressUse",
					"code":   "primary",
				},
			}},
			"postalCode": trimmed(row.GeographicLocation),
		}},
		"gender":    normalizeGender(row.HostSex),
		"birthDate": normalizeBirthDate(row.HostBirthYear, row.HostBirthMonth),
	}

	return entry("Patient", ids.patient, resource)
}

// substances returns the two adapter substances (always emitted, their
// descriptions pruned away when blank) and the primer substance, which is
// only emitted when a primer scheme is given.
func (b *Builder) substances(row Row, ids bundleIDs) (adapter1, adapter2, primer obj) {
	first, second := splitAdapters(row.Adapter)

	adapterResource := func(id, description string) obj {
		return obj{
			"resourceType": "Substance",
			"id":           id,
			"meta":         profileMeta(igsBase + "/StructureDefinition/AdapterSubstance"),
			"code": obj{"coding": arr{obj{
				"system":  igsBase + "/CodeSystem/sequencingSubstances",
				"code":    "adapter",
				"display": "Adapter Sequence",
			}}},
			"description": description,
		}
	}

	adapter1 = entry("Substance", ids.adapter1, adapterResource(ids.adapter1, first))
	adapter2 = entry("Substance", ids.adapter2, adapterResource(ids.adapter2, second))

	if scheme := trimmed(row.PrimerScheme); scheme != "" {
		primer = entry("Substance", ids.primer, obj{
			"resourceType": "Substance",
			"id":           ids.primer,
			"meta":         profileMeta(igsBase + "/StructureDefinition/PrimerSubstance"),
			"code": obj{"coding": arr{obj{
				"system":  igsBase + "/CodeSystem/sequencingSubstances",
				"code":    "primer",
				"display": "Primer Sequence",
			}}},
			"description": scheme,
		})
	}

	return adapter1, adapter2, primer
}

func (b *Builder) specimen(row Row, ids bundleIDs, hasSubmittingRole bool) obj {
	additives := arr{
		ref("Substance", ids.adapter1),
		ref("Substance", ids.adapter2),
	}

	if trimmed(row.PrimerScheme) != "" {
		additives = append(additives, ref("Substance", ids.primer))
	}

	// The collector points at the submitting role when one is emitted,
	// otherwise it falls back to the notifying practitioner role.
	collector := ids.role
	if hasSubmittingRole {
		collector = ids.subRole
	}

	processing := obj{
		"description":  trimmed(row.NameAmpProtocol),
		"additive":     additives,
		"timeDateTime": normalizeDate(row.DateOfSequencing),
	}

	if strategy := trimmed(row.SequencingStrategy); strategy != "" {
		processing["procedure"] = obj{"coding": arr{obj{
			"system": igsBase + "/CodeSystem/sequencingStrategy",
			"code":   strategy,
		}}}
	}

	resource := obj{
		"resourceType": "Specimen",
		"id":           ids.specimen,
		"meta":         profileMeta(igsBase + "/StructureDefinition/SpecimenSequence"),
		"status":       "available",
		"type": obj{"coding": arr{obj{
			"system":  snomedSys,
			"code":    trimmed(row.IsolationSourceCode),
			"display": trimmed(row.IsolationSource),
		}}},
		"subject":      ref("Patient", ids.patient),
		"receivedTime": normalizeDate(row.DateOfReceiving),
		"collection": obj{
			"collector":         ref("PractitionerRole", collector),
			"collectedDateTime": normalizeDate(row.DateOfSampling),
		},
		"processing": arr{processing},
	}

	if isolate := trimmed(row.Isolate); isolate != "" {
		resource["extension"] = arr{obj{
			"url":         igsBase + "/StructureDefinition/Isolate",
			"valueString": isolate,
		}}
	}

	return entry("Specimen", ids.specimen, resource)
}

func (b *Builder) device(row Row, ids bundleIDs) obj {
	resource := obj{
		"resourceType": "Device",
		"id":           ids.device,
		"meta":         profileMeta(igsBase + "/StructureDefinition/SequencingDevice"),
	}

	if instrument := trimmed(row.SequencingInstrument); instrument != "" {
		resource["deviceName"] = arr{obj{"name": instrument, "type": "model-name"}}
	}

	if platform := trimmed(row.SequencingPlatform); platform != "" {
		resource["type"] = obj{"coding": arr{obj{
			"system":  igsBase + "/CodeSystem/sequencingPlatform",
			"code":    platform,
			"display": platform,
		}}}
	}

	return entry("Device", ids.device, resource)
}

// molecularSequence carries the repository block, the sequencing reason,
// the author, and one document reference extension per validated file.
func (b *Builder) molecularSequence(row Row, ids bundleIDs, docIDs []string) obj {
	extensions := arr{}

	if len(docIDs) > 2 {
		docIDs = docIDs[:2]
	}

	for _, docID := range docIDs {
		extensions = append(extensions, obj{
			"url": igsBase + "/StructureDefinition/SequenceDocumentReference",
			"valueReference": obj{
				"reference": b.fhirBase + "/DocumentReference/" + docID,
				"type":      "DocumentReference",
			},
		})
	}

	if code := resolveSequencingReason(row.SequencingReason); code != "" {
		extensions = append(arr{obj{
			"url": igsBase + "/StructureDefinition/SequencingReason",
			"valueCoding": obj{
				"system": snomedSys,
				"code":   code,
			},
		}}, extensions...)
	}

	if author := trimmed(row.Author); author != "" {
		extensions = append(arr{obj{
			"url":         igsBase + "/StructureDefinition/SequenceAuthor",
			"valueString": author,
		}}, extensions...)
	}

	resource := obj{
		"resourceType":     "MolecularSequence",
		"id":               ids.sequence,
		"meta":             profileMeta(igsBase + "/StructureDefinition/Sequence"),
		"coordinateSystem": 1,
		"specimen":         ref("Specimen", ids.specimen),
		"device":           ref("Device", ids.device),
		"extension":        extensions,
		"performer":        ref("Organization", ids.org),
		"repository":       arr{b.repository(row)},
	}

	if seqID := trimmed(row.LabSequenceID); seqID != "" {
		resource["identifier"] = arr{obj{"value": seqID}}
	}

	return entry("MolecularSequence", ids.sequence, resource)
}

func (b *Builder) repository(row Row) obj {
	extensions := arr{obj{
		"url": igsBase + "/StructureDefinition/SequenceUploadStatus",
		"valueCoding": obj{
			"system": snomedSys,
			"code":   resolveUploadStatus(row.UploadStatus, row.RepositoryLink, row.RepositoryID),
		},
	}}

	if date := normalizeDate(row.UploadDate); date != "" {
		extensions = append(extensions, obj{
			"url":           igsBase + "/StructureDefinition/SequenceUploadDate",
			"valueDateTime": date,
		})
	}

	if submitter := trimmed(row.UploadSubmitter); submitter != "" {
		extensions = append(extensions, obj{
			"url":         igsBase + "/StructureDefinition/SequenceUploadSubmitter",
			"valueString": submitter,
		})
	}

	return obj{
		"name":      normalizeRepository(row.RepositoryName),
		"url":       trimmed(row.RepositoryLink),
		"datasetId": trimmed(row.RepositoryID),
		"type":      "other",
		"extension": extensions,
	}
}

func (b *Builder) observation(row Row, ids bundleIDs) obj {
	resource := obj{
		"resourceType": "Observation",
		"id":           ids.observation,
		"meta":         profileMeta(igsBase + "/StructureDefinition/PathogenDetectionSequence"),
		"status":       fallback(row.Status, "final"),
		"category": arr{obj{"coding": arr{obj{
			"system": "http://terminology.hl7.org/CodeSystem/observation-category",
			"code":   "laboratory",
		}}}},
		"code": obj{"coding": arr{obj{
			"system":  loincSys,
			"code":    "41852-5",
			"display": "Microorganism or agent identified in Specimen",
		}}},
		"valueCodeableConcept": obj{"coding": arr{obj{
			"system":  snomedSys,
			"code":    trimmed(row.SpeciesCode),
			"display": trimmed(row.Species),
		}}},
		"subject": ref("Patient", ids.patient),
		"interpretation": arr{obj{"coding": arr{obj{
			"system": "http://terminology.hl7.org/CodeSystem/v3-ObservationInterpretation",
			"code":   "POS",
		}}}},
		"method": obj{"coding": arr{obj{
			"system":  snomedSys,
			"code":    "117040002",
			"display": "Nucleic acid sequencing (procedure)",
		}}},
		"specimen":    ref("Specimen", ids.specimen),
		"device":      ref("Device", ids.device),
		"derivedFrom": arr{ref("MolecularSequence", ids.sequence)},
	}

	return entry("Observation", ids.observation, resource)
}

func (b *Builder) diagnosticReport(row Row, ids bundleIDs, now string) obj {
	resource := obj{
		"resourceType": "DiagnosticReport",
		"id":           ids.report,
		"meta":         profileMeta(igsBase + "/StructureDefinition/LaboratoryReportSequence"),
		"status":       "final",
		"code": obj{"coding": arr{obj{
			"system": demisBase + "/CodeSystem/notificationCategory",
			"code":   trimmed(row.Meldetatbestand),
		}}},
		"subject":    ref("Patient", ids.patient),
		"issued":     now,
		"result":     arr{ref("Observation", ids.observation)},
		"conclusion": "NACHWEIS eines meldepflichtigen Erregers",
		"conclusionCode": arr{obj{"coding": arr{obj{
			"system":  demisBase + "/CodeSystem/conclusionCode",
			"code":    "pathogenDetected",
			"display": "Meldepflichtiger Erreger nachgewiesen",
		}}}},
	}

	return entry("DiagnosticReport", ids.report, resource)
}

// composition reuses the row's externally supplied notification id, the
// one identifier in the bundle that is not freshly generated. The id is
// carried verbatim, matching the bundle-level identifier byte for byte.
func (b *Builder) composition(row Row, ids bundleIDs, now string) obj {
	notificationID := row.DemisNotificationID

	resource := obj{
		"resourceType": "Composition",
		"id":           notificationID,
		"meta":         profileMeta(igsBase + "/StructureDefinition/NotificationSequence"),
		"identifier": obj{
			"system": demisBase + "/NamingSystem/NotificationId",
			"value":  notificationID,
		},
		"status": fallback(row.Status, "final"),
		"type": obj{"coding": arr{obj{
			"system":  loincSys,
			"code":    "34782-3",
			"display": "Infectious disease Note",
		}}},
		"category": arr{obj{"coding": arr{obj{
			"system":  loincSys,
			"code":    "11502-2",
			"display": "Laboratory report",
		}}}},
		"subject": ref("Patient", ids.patient),
		"author":  arr{ref("PractitionerRole", ids.role)},
		"relatesTo": arr{obj{
			"code": "appends",
			"targetReference": obj{
				"type": "Composition",
				"identifier": obj{
					"system": demisBase + "/NamingSystem/NotificationId",
					"value":  notificationID,
				},
			},
		}},
		"date":  now,
		"title": "Sequenzmeldung",
		"section": arr{obj{
			"code": obj{"coding": arr{obj{
				"system":  loincSys,
				"code":    "11502-2",
				"display": "Laboratory report",
			}}},
			"entry": arr{ref("DiagnosticReport", ids.report)},
		}},
	}

	return entry("Composition", notificationID, resource)
}

// fallback returns the trimmed value, or def when blank.
func fallback(value, def string) string {
	if v := trimmed(value); v != "" {
		return v
	}

	return def
}
