package tasks

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestTypeValid(t *testing.T) {
	valid := []Type{
		TypeUpdateLeadScore, TypeSendSequenceEmail, TypeScheduleCall, TypeSendReminder,
		TypeQualifyWarmLeads, TypeCheckEngagement, TypePageAnalytics,
	}
	for _, taskType := range valid {
		if !taskType.Valid() {
			t.Errorf("%q should be valid", taskType)
		}
	}
	if Type("drop_tables").Valid() {
		t.Error("unknown type should be invalid")
	}
}

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	for _, p := range []Priority{"asap", "urgent"} {
		if p.Valid() {
			t.Errorf("%q should be invalid", p)
		}
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	leadID := uuid.New()
	raw, err := EncodePayload(ScheduleCallPayload{LeadID: leadID, Priority: "high"})
	if err != nil {
		t.Fatal(err)
	}

	task := &Task{Type: TypeScheduleCall, Payload: raw}
	var decoded ScheduleCallPayload
	if err := DecodePayload(task, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.LeadID != leadID || decoded.Priority != "high" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestDecodePayloadMalformed(t *testing.T) {
	task := &Task{Type: TypeScheduleCall, Payload: json.RawMessage(`{"lead_id": 12}`)}
	var decoded ScheduleCallPayload
	if err := DecodePayload(task, &decoded); err == nil {
		t.Fatal("expected an error for a malformed payload")
	}
}
