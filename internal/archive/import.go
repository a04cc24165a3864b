package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rblogdb/rblog/internal/chain"
	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/model"
)

// Importer runs import_archive: parse, verify, dedupe, chain-verify,
// insert.
type Importer struct {
	Store *store.Store
}

// ImportArchive runs the full import pipeline against a .rblogs byte
// string: codec-level validation (magic, version, footer hash, event
// count) fails the whole import; per-event shape validation records
// malformed entries into errors without failing the import; chain
// verification across the surviving valid events fails the whole
// import; everything else is inserted, skipping ids that already
// exist.
func (m *Importer) ImportArchive(ctx context.Context, data []byte) (model.ImportReport, error) {
	env, err := parse(data)
	if err != nil {
		return model.ImportReport{}, &model.ImportFailed{Reason: err.Error()}
	}

	var valid []model.Event
	var importErrors []model.ImportError

	for _, raw := range env.Raw {
		e, reason := decodeRecord(raw)
		if reason != "" {
			importErrors = append(importErrors, model.ImportError{
				EventID: extractID(raw),
				Reason:  reason,
			})
			continue
		}
		valid = append(valid, e)
	}

	if err := verifyChainsBySpace(valid); err != nil {
		return model.ImportReport{}, err
	}

	report := model.ImportReport{Errors: importErrors}
	if report.Errors == nil {
		report.Errors = []model.ImportError{}
	}

	for _, e := range valid {
		skipped, err := m.Store.InsertEventIfAbsent(ctx, e)
		if err != nil {
			return model.ImportReport{}, err
		}
		if skipped {
			report.SkippedDuplicates++
		} else {
			report.ImportedEvents++
		}
	}

	return report, nil
}

// decodeRecord validates one archive element's shape: presence of all
// required fields, a recognized event type, a string-or-null
// previous_hash, and an object payload. Returns a non-empty reason on
// failure instead of an error, matching the importer's
// record-not-insert-but-don't-fail contract.
func decodeRecord(raw json.RawMessage) (model.Event, string) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return model.Event{}, fmt.Sprintf("not a JSON object: %v", err)
	}

	id, ok := obj["id"].(string)
	if !ok || id == "" {
		return model.Event{}, "missing or invalid field: id"
	}

	typeStr, ok := obj["type"].(string)
	if !ok {
		return model.Event{}, "missing or invalid field: type"
	}
	if !model.IsValidEventType(model.EventType(typeStr)) {
		return model.Event{}, fmt.Sprintf("type %q is not one of the eleven enumerated tags", typeStr)
	}

	spaceID, ok := obj["space_id"].(string)
	if !ok || spaceID == "" {
		return model.Event{}, "missing or invalid field: space_id"
	}

	timestamp, ok := obj["timestamp"].(string)
	if !ok || timestamp == "" {
		return model.Event{}, "missing or invalid field: timestamp"
	}

	seqNum, ok := obj["sequence_number"].(float64)
	if !ok {
		return model.Event{}, "missing or invalid field: sequence_number"
	}

	hash, ok := obj["hash"].(string)
	if !ok || hash == "" {
		return model.Event{}, "missing or invalid field: hash"
	}

	var previousHash *string
	switch v := obj["previous_hash"].(type) {
	case nil:
		previousHash = nil
	case string:
		previousHash = &v
	default:
		return model.Event{}, "field previous_hash must be a string or null"
	}

	version, ok := obj["version"].(float64)
	if !ok {
		return model.Event{}, "missing or invalid field: version"
	}

	payloadRaw, hasPayload := obj["payload"]
	payload, ok := payloadRaw.(map[string]any)
	if !hasPayload || !ok {
		return model.Event{}, "missing or invalid field: payload (must be an object)"
	}

	return model.Event{
		ID:             id,
		Type:           model.EventType(typeStr),
		SpaceID:        spaceID,
		Timestamp:      timestamp,
		SequenceNumber: int64(seqNum),
		Hash:           hash,
		PreviousHash:   previousHash,
		Version:        int(version),
		Payload:        payload,
	}, ""
}

// extractID pulls the "id" field out of a raw archive element for
// error reporting, or "unknown" if absent or malformed.
func extractID(raw json.RawMessage) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "unknown"
	}
	if id, ok := obj["id"].(string); ok && id != "" {
		return id
	}
	return "unknown"
}

// verifyChainsBySpace groups the valid events by space_id, sorts each
// group by sequence_number, and runs chain.VerifyLinks; the first
// broken space fails the whole import.
func verifyChainsBySpace(events []model.Event) error {
	bySpace := make(map[string][]model.Event)
	var spaceOrder []string
	for _, e := range events {
		if _, seen := bySpace[e.SpaceID]; !seen {
			spaceOrder = append(spaceOrder, e.SpaceID)
		}
		bySpace[e.SpaceID] = append(bySpace[e.SpaceID], e)
	}
	sort.Strings(spaceOrder)

	for _, spaceID := range spaceOrder {
		group := bySpace[spaceID]
		sort.Slice(group, func(i, j int) bool { return group[i].SequenceNumber < group[j].SequenceNumber })

		if i := chain.VerifyLinks(group); i != chain.Intact {
			e := group[i]
			return &model.ImportFailed{
				Reason:  fmt.Sprintf("broken chain link in space %q at sequence %d", spaceID, e.SequenceNumber),
				EventID: e.ID,
			}
		}
	}
	return nil
}
