package document

import (
	"fmt"
	"time"
)

// Demo fixtures returned when the session holds a synthetic test token.
// These mirror what a populated backend would answer and keep the rest of the
// client oblivious to demo mode.

func demoTags() []Tag {
	return []Tag{
		{TagName: "Invoice"},
		{TagName: "Contract"},
		{TagName: "2024"},
		{TagName: "Important"},
		{TagName: "Finance"},
		{TagName: "HR"},
	}
}

func demoSearch() SearchResult {
	entries := []Entry{
		{
			ID:              "1",
			MajorHead:       "Finance",
			MinorHead:       "Invoice",
			DocumentDate:    "15-12-2024",
			DocumentRemarks: "Q4 invoice for vendor services",
			Tags:            []string{"Invoice", "2024", "Finance"},
			UploadedBy:      "Test User",
			UploadedAt:      "2024-12-15T10:30:00Z",
			FileName:        "invoice_q4_2024.pdf",
		},
		{
			ID:              "2",
			MajorHead:       "HR",
			MinorHead:       "Contract",
			DocumentDate:    "01-11-2024",
			DocumentRemarks: "Employment contract for new hire",
			Tags:            []string{"Contract", "HR", "2024"},
			UploadedBy:      "Test User",
			UploadedAt:      "2024-11-01T09:15:00Z",
			FileName:        "employee_contract.pdf",
		},
		{
			ID:              "3",
			MajorHead:       "Legal",
			MinorHead:       "Agreement",
			DocumentDate:    "20-10-2024",
			DocumentRemarks: "Vendor agreement renewal",
			Tags:            []string{"Agreement", "Legal", "Important"},
			UploadedBy:      "Test User",
			UploadedAt:      "2024-10-20T14:45:00Z",
			FileName:        "vendor_agreement.pdf",
		},
	}
	return SearchResult{Entries: entries, RecordsTotal: len(entries)}
}

func demoUpload(in UploadInput) UploadResult {
	return UploadResult{
		Message:    "Document uploaded successfully",
		DocumentID: fmt.Sprintf("DOC%d", time.Now().UnixMilli()),
		FileName:   in.FileName,
	}
}
