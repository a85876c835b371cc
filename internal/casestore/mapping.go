package casestore

import (
	"encoding/json"
	"fmt"

	"gitlab.com/teranga/resolution/internal/cases"
	"gitlab.com/teranga/resolution/internal/repository"
	"gitlab.com/teranga/resolution/internal/resolution"
)

func returnRowFromCase(rc *cases.ReturnCase) (*repository.ReturnCaseRow, error) {
	evidence, err := json.Marshal(rc.Evidence)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}

	var resolutionType *string
	if rc.ResolutionType != nil {
		s := string(*rc.ResolutionType)
		resolutionType = &s
	}

	return &repository.ReturnCaseRow{
		ID:              rc.ID,
		OrderID:         rc.OrderID,
		BuyerID:         rc.BuyerID,
		SellerID:        rc.SellerID,
		Amount:          rc.Amount,
		Status:          string(rc.Status),
		Reason:          string(rc.Reason),
		Description:     rc.Description,
		Evidence:        evidence,
		ProposedRefund:  rc.ProposedRefund,
		ResolutionType:  resolutionType,
		InspectionNotes: rc.InspectionNotes,
		RejectionReason: rc.RejectionReason,
		Escalated:       rc.Escalated,
		DisputeID:       rc.DisputeID,
		CreatedAt:       rc.CreatedAt,
		UpdatedAt:       rc.UpdatedAt,
	}, nil
}

func returnCaseFromRow(row *repository.ReturnCaseRow) (*cases.ReturnCase, error) {
	var evidence []string
	if len(row.Evidence) > 0 {
		if err := json.Unmarshal(row.Evidence, &evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence: %w", err)
		}
	}

	var resolutionType *resolution.Type
	if row.ResolutionType != nil {
		t := resolution.Type(*row.ResolutionType)
		resolutionType = &t
	}

	return &cases.ReturnCase{
		ID:              row.ID,
		OrderID:         row.OrderID,
		BuyerID:         row.BuyerID,
		SellerID:        row.SellerID,
		Amount:          row.Amount,
		Status:          cases.ReturnStatus(row.Status),
		Reason:          cases.ReturnReason(row.Reason),
		Description:     row.Description,
		Evidence:        evidence,
		ProposedRefund:  row.ProposedRefund,
		ResolutionType:  resolutionType,
		InspectionNotes: row.InspectionNotes,
		RejectionReason: row.RejectionReason,
		Escalated:       row.Escalated,
		DisputeID:       row.DisputeID,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}

func disputeRowFromCase(dc *cases.DisputeCase) (*repository.DisputeCaseRow, error) {
	var proposal []byte
	if dc.Proposal != nil {
		var err error
		proposal, err = json.Marshal(dc.Proposal)
		if err != nil {
			return nil, fmt.Errorf("marshal proposal: %w", err)
		}
	}

	return &repository.DisputeCaseRow{
		ID:                      dc.ID,
		OriginatingReturnCaseID: dc.OriginatingReturnCaseID,
		OrderID:                 dc.OrderID,
		PlaintiffID:             dc.PlaintiffID,
		RespondentID:            dc.RespondentID,
		MediatorID:              dc.MediatorID,
		Amount:                  dc.Amount,
		Status:                  string(dc.Status),
		Type:                    string(dc.Type),
		Description:             dc.Description,
		ResponseDeadline:        dc.ResponseDeadline,
		Proposal:                proposal,
		MediationRound:          dc.MediationRound,
		CreatedAt:               dc.CreatedAt,
		UpdatedAt:               dc.UpdatedAt,
	}, nil
}

func disputeCaseFromRow(row *repository.DisputeCaseRow) (*cases.DisputeCase, error) {
	var proposal *cases.MediationProposal
	if len(row.Proposal) > 0 {
		proposal = &cases.MediationProposal{}
		if err := json.Unmarshal(row.Proposal, proposal); err != nil {
			return nil, fmt.Errorf("unmarshal proposal: %w", err)
		}
	}

	return &cases.DisputeCase{
		ID:                      row.ID,
		OriginatingReturnCaseID: row.OriginatingReturnCaseID,
		OrderID:                 row.OrderID,
		PlaintiffID:             row.PlaintiffID,
		RespondentID:            row.RespondentID,
		MediatorID:              row.MediatorID,
		Amount:                  row.Amount,
		Status:                  cases.DisputeStatus(row.Status),
		Type:                    cases.DisputeType(row.Type),
		Description:             row.Description,
		ResponseDeadline:        row.ResponseDeadline,
		Proposal:                proposal,
		MediationRound:          row.MediationRound,
		CreatedAt:               row.CreatedAt,
		UpdatedAt:               row.UpdatedAt,
	}, nil
}

func timelineFromEvents(events []*repository.CaseEventRow) []cases.TimelineEntry {
	timeline := make([]cases.TimelineEntry, 0, len(events))
	for _, ev := range events {
		timeline = append(timeline, cases.TimelineEntry{
			Seq:       ev.Seq,
			Timestamp: ev.CreatedAt,
			ActorID:   ev.ActorID,
			ActorRole: cases.ActorRole(ev.ActorRole),
			Action:    cases.Action(ev.Action),
			Detail:    ev.Detail,
		})
	}
	return timeline
}

func messagesFromRows(rows []*repository.DisputeMessageRow) ([]cases.DisputeMessage, error) {
	messages := make([]cases.DisputeMessage, 0, len(rows))
	for _, row := range rows {
		var refs []string
		if len(row.EvidenceRefs) > 0 {
			if err := json.Unmarshal(row.EvidenceRefs, &refs); err != nil {
				return nil, fmt.Errorf("unmarshal evidence refs: %w", err)
			}
		}
		messages = append(messages, cases.DisputeMessage{
			AuthorID:     row.AuthorID,
			Role:         cases.ActorRole(row.Role),
			Body:         row.Body,
			Timestamp:    row.CreatedAt,
			EvidenceRefs: refs,
		})
	}
	return messages, nil
}
