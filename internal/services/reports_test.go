package services

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"safenet/internal/models"
	"safenet/internal/store"
	"safenet/internal/utils"
)

func TestSubmitReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.submit(t)
	if r.Status != models.ReportPending {
		t.Errorf("expected Pending, got %s", r.Status)
	}
	if r.Priority != models.PriorityMedium {
		t.Errorf("expected default priority Medium, got %s", r.Priority)
	}
	if !utils.LooksLikeTrackingCode(r.TrackingCode) {
		t.Errorf("unexpected tracking code %q", r.TrackingCode)
	}
	if r.AssignedProviderID != nil {
		t.Error("new report should not be assigned")
	}

	other := f.submit(t)
	if other.TrackingCode == r.TrackingCode {
		t.Error("tracking codes must be unique")
	}

	updates, _ := f.st.ListReportUpdates(ctx, r.ID)
	if len(updates) != 1 || updates[0].CreatedByAccountID != nil {
		t.Errorf("expected one anonymous initial update, got %+v", updates)
	}
	logs := f.logsOfType(t, EventReportSubmitted)
	if len(logs) != 2 || logs[0].AccountID != nil || logs[0].IPHash != "iphash" {
		t.Errorf("unexpected audit entries %+v", logs)
	}
}

func TestSubmitReportSanitizesText(t *testing.T) {
	f := newFixture(t)
	in := validSubmission()
	in.Description = "  <script>alert(1)</script>Someone broke in & took things  "
	r, err := f.svc.Reports.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if r.Description != "Someone broke in & took things" {
		t.Errorf("unexpected description %q", r.Description)
	}
}

func TestSubmitReportValidation(t *testing.T) {
	f := newFixture(t)
	lat, lng, bad, nan := 6.5, 3.4, 91.0, math.NaN()

	tests := []struct {
		name  string
		field string
		edit  func(*SubmitReportInput)
	}{
		{"unknown category", "category", func(in *SubmitReportInput) { in.Category = "Noise" }},
		{"empty description", "description", func(in *SubmitReportInput) { in.Description = "   " }},
		{"markup only description", "description", func(in *SubmitReportInput) { in.Description = "<b></b>" }},
		{"long description", "description", func(in *SubmitReportInput) { in.Description = strings.Repeat("a", maxDescriptionLen+1) }},
		{"empty location", "location", func(in *SubmitReportInput) { in.Location = "" }},
		{"missing date", "incident_date", func(in *SubmitReportInput) { in.IncidentDate = time.Time{} }},
		{"future date", "incident_date", func(in *SubmitReportInput) { in.IncidentDate = time.Now().Add(72 * time.Hour) }},
		{"latitude only", "coordinates", func(in *SubmitReportInput) { in.Latitude = &lat }},
		{"longitude only", "coordinates", func(in *SubmitReportInput) { in.Longitude = &lng }},
		{"latitude out of range", "coordinates", func(in *SubmitReportInput) { in.Latitude, in.Longitude = &bad, &lng }},
		{"nan coordinate", "coordinates", func(in *SubmitReportInput) { in.Latitude, in.Longitude = &lat, &nan }},
		{"too many files", "attachments", func(in *SubmitReportInput) {
			for i := 0; i < MaxAttachments+1; i++ {
				in.Attachments = append(in.Attachments, upload("a.png", "image/png", "x"))
			}
		}},
		{"bad file type", "attachments", func(in *SubmitReportInput) {
			in.Attachments = []Upload{upload("a.exe", "application/x-msdownload", "MZ")}
		}},
		{"file too large", "attachments", func(in *SubmitReportInput) {
			u := upload("a.pdf", "application/pdf", "x")
			u.Size = MaxAttachmentBytes + 1
			in.Attachments = []Upload{u}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validSubmission()
			tt.edit(&in)
			_, err := f.svc.Reports.Submit(context.Background(), in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, ve.Field)
			}
		})
	}

	reports, _ := f.svc.Reports.List(context.Background(), f.admin, "", 0)
	if len(reports) != 0 {
		t.Errorf("rejected submissions must not be stored, found %d", len(reports))
	}
}

func TestSubmitReportWithCoordinatesAndToday(t *testing.T) {
	f := newFixture(t)
	lat, lng := -33.9, 18.4
	in := validSubmission()
	in.IncidentDate = time.Now()
	in.Latitude, in.Longitude = &lat, &lng
	r, err := f.svc.Reports.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if r.Latitude == nil || *r.Latitude != lat {
		t.Errorf("latitude not stored: %v", r.Latitude)
	}
}

func TestSubmitRetriesTrackingCodeCollision(t *testing.T) {
	f := newFixture(t)
	existing := f.submit(t)

	codes := []string{existing.TrackingCode, existing.TrackingCode, strings.Repeat("B", 32)}
	f.svc.Reports.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	r, err := f.svc.Reports.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if r.TrackingCode != strings.Repeat("B", 32) {
		t.Errorf("expected third code, got %q", r.TrackingCode)
	}
}

func TestSubmitGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t)
	existing := f.submit(t)
	calls := 0
	f.svc.Reports.newCode = func() (string, error) {
		calls++
		return existing.TrackingCode, nil
	}
	_, err := f.svc.Reports.Submit(context.Background(), validSubmission())
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if calls != codeAttempts {
		t.Errorf("expected %d attempts, got %d", codeAttempts, calls)
	}
}

func TestSubmitStoresAttachments(t *testing.T) {
	f := newFixture(t)
	in := validSubmission()
	in.Attachments = []Upload{
		upload("../../etc/photo.PNG", "image/png", "png-bytes"),
		upload("statement.pdf", "application/pdf; charset=binary", "%PDF-1.4"),
	}
	r, err := f.svc.Reports.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	atts, _ := f.st.ListAttachments(context.Background(), r.ID)
	if len(atts) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(atts))
	}
	if !strings.HasSuffix(atts[0].Filename, ".png") || !strings.HasSuffix(atts[1].Filename, ".pdf") {
		t.Errorf("unexpected stored names %q %q", atts[0].Filename, atts[1].Filename)
	}
	if atts[1].ContentType != "application/pdf" {
		t.Errorf("content type not normalized: %q", atts[1].ContentType)
	}
	data, err := os.ReadFile(f.svc.Files.Path(atts[1].Filename))
	if err != nil || string(data) != "%PDF-1.4" {
		t.Errorf("attachment not written: %q %v", data, err)
	}

	path, att, err := f.svc.Reports.AttachmentPath(context.Background(), f.admin, r.ID, atts[0].Filename)
	if err != nil || att.OriginalFilename != "../../etc/photo.PNG" || path != f.svc.Files.Path(atts[0].Filename) {
		t.Errorf("AttachmentPath = %q %+v %v", path, att, err)
	}
	_, _, err = f.svc.Reports.AttachmentPath(context.Background(), f.admin, r.ID, "missing.pdf")
	wantErr(t, err, ErrNotFound)
}

func TestSubmitRemovesFilesWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	f.st.FailOn = map[string]error{"CreateReport": errors.New("db down")}
	in := validSubmission()
	in.Attachments = []Upload{upload("a.png", "image/png", "png")}
	if _, err := f.svc.Reports.Submit(context.Background(), in); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(f.dir)
	if len(entries) != 0 {
		t.Errorf("expected upload dir to be empty, found %d files", len(entries))
	}
}

func TestTrack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, code := range []string{"", "short", strings.Repeat("A", 32), strings.Repeat("!", 32)} {
		if _, err := f.svc.Reports.Track(ctx, code); !errors.Is(err, ErrNotFound) {
			t.Errorf("Track(%q): expected ErrNotFound, got %v", code, err)
		}
	}

	r := f.submit(t)
	res, err := f.svc.Reports.Track(ctx, "  "+r.TrackingCode+" ")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if res.Status != models.ReportPending || res.Provider != nil || len(res.Updates) != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	p, _ := f.provider(t, "City Clinic", true)
	if _, err := f.svc.Reports.Assign(ctx, f.admin, r.ID, p.ID, "They will call you."); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	res, err = f.svc.Reports.Track(ctx, r.TrackingCode)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if res.Status != models.ReportAssigned {
		t.Errorf("expected Assigned, got %s", res.Status)
	}
	if res.Provider == nil || res.Provider.Name != "City Clinic" || res.Provider.ContactPhone == "" {
		t.Errorf("expected public provider profile, got %+v", res.Provider)
	}
	if len(res.Updates) != 2 || !strings.Contains(res.Updates[0].Message, "They will call you.") {
		t.Errorf("unexpected updates %+v", res.Updates)
	}
}

func TestReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	_, staff := f.provider(t, "Legal Aid", true)

	_, err := f.svc.Reports.Review(ctx, staff, r.ID, models.PriorityHigh, "")
	wantErr(t, err, ErrForbidden)

	_, err = f.svc.Reports.Review(ctx, f.admin, r.ID, "Urgent!", "")
	wantErr(t, err, ErrValidation)

	_, err = f.svc.Reports.Review(ctx, f.admin, 9999, "", "")
	wantErr(t, err, ErrNotFound)

	got, err := f.svc.Reports.Review(ctx, f.admin, r.ID, models.PriorityHigh, "Thank you for reporting.")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got.Status != models.ReportReviewed || got.Priority != models.PriorityHigh {
		t.Errorf("unexpected report %+v", got)
	}
	stored := f.report(t, r.ID)
	if stored.Status != models.ReportReviewed || stored.Priority != models.PriorityHigh {
		t.Errorf("review not persisted: %+v", stored)
	}
	updates, _ := f.st.ListReportUpdates(ctx, r.ID)
	if updates[0].Message != "Thank you for reporting." || updates[0].CreatedByAccountID == nil {
		t.Errorf("unexpected update %+v", updates[0])
	}

	_, err = f.svc.Reports.Review(ctx, f.admin, r.ID, "", "")
	wantErr(t, err, ErrInvalidState)
}

func TestReviewRollsBackWhenUpdateFails(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t)
	f.st.FailOn = map[string]error{"CreateReportUpdate": errors.New("disk full")}

	if _, err := f.svc.Reports.Review(context.Background(), f.admin, r.ID, models.PriorityLow, ""); err == nil {
		t.Fatal("expected error")
	}
	if got := f.report(t, r.ID); got.Status != models.ReportPending || got.Priority != models.PriorityMedium {
		t.Errorf("report changed despite rollback: %+v", got)
	}
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	unverified, _ := f.provider(t, "New Shelter", false)
	clinic, staff := f.provider(t, "Clinic", true)
	legal, _ := f.provider(t, "Legal", true)

	_, err := f.svc.Reports.Assign(ctx, staff, r.ID, clinic.ID, "")
	wantErr(t, err, ErrForbidden)

	_, err = f.svc.Reports.Assign(ctx, f.admin, r.ID, unverified.ID, "")
	wantErr(t, err, ErrNotFound)

	_, err = f.svc.Reports.Assign(ctx, f.admin, r.ID, 9999, "")
	wantErr(t, err, ErrNotFound)

	if got := f.report(t, r.ID); got.Status != models.ReportPending || got.AssignedProviderID != nil {
		t.Fatalf("failed assignment changed report: %+v", got)
	}

	got, err := f.svc.Reports.Assign(ctx, f.admin, r.ID, clinic.ID, "")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got.Status != models.ReportAssigned || got.AssignedProviderID == nil || *got.AssignedProviderID != clinic.ID || got.AssignedAt == nil {
		t.Errorf("unexpected report %+v", got)
	}

	got, err = f.svc.Reports.Assign(ctx, f.admin, r.ID, legal.ID, "")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if *got.AssignedProviderID != legal.ID {
		t.Errorf("expected reassignment to %d, got %d", legal.ID, *got.AssignedProviderID)
	}

	if _, err := f.svc.Reports.UpdateStatus(ctx, f.admin, r.ID, models.ReportClosed, "Resolved"); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err = f.svc.Reports.Assign(ctx, f.admin, r.ID, clinic.ID, "")
	wantErr(t, err, ErrInvalidState)
}

func TestUpdateStatusAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _, owner := f.assigned(t)
	_, outsider := f.provider(t, "Other Org", true)

	_, err := f.svc.Reports.UpdateStatus(ctx, outsider, r.ID, models.ReportClosed, "done")
	wantErr(t, err, ErrForbidden)
	if got := f.report(t, r.ID); got.Status != models.ReportAssigned {
		t.Errorf("forbidden update changed status to %s", got.Status)
	}

	// authorization is checked before the transition rules
	_, err = f.svc.Reports.UpdateStatus(ctx, outsider, r.ID, models.ReportPending, "")
	wantErr(t, err, ErrForbidden)

	if _, err := f.svc.Reports.UpdateStatus(ctx, owner, r.ID, models.ReportClosed, "Case resolved."); err != nil {
		t.Fatalf("owner close: %v", err)
	}
	got := f.report(t, r.ID)
	if got.Status != models.ReportClosed || got.ClosedAt == nil {
		t.Errorf("expected Closed with ClosedAt, got %+v", got)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*testing.T, *fixture) *models.Report
		to      models.ReportStatus
		note    string
		wantErr error
	}{
		{"pending to reviewed", func(t *testing.T, f *fixture) *models.Report { return f.submit(t) }, models.ReportReviewed, "", nil},
		{"pending to closed", func(t *testing.T, f *fixture) *models.Report { return f.submit(t) }, models.ReportClosed, "", nil},
		{"pending to assigned without provider", func(t *testing.T, f *fixture) *models.Report { return f.submit(t) }, models.ReportAssigned, "", ErrInvalidState},
		{"unknown status", func(t *testing.T, f *fixture) *models.Report { return f.submit(t) }, "Resolved", "", ErrValidation},
		{"same status without note", func(t *testing.T, f *fixture) *models.Report { return f.submit(t) }, models.ReportPending, "", ErrValidation},
		{"same status with note", func(t *testing.T, f *fixture) *models.Report { return f.submit(t) }, models.ReportPending, "Still looking into it.", nil},
		{"assigned back to reviewed", func(t *testing.T, f *fixture) *models.Report { r, _, _ := f.assigned(t); return r }, models.ReportReviewed, "", ErrInvalidState},
		{"assigned back to pending", func(t *testing.T, f *fixture) *models.Report { r, _, _ := f.assigned(t); return r }, models.ReportPending, "", ErrInvalidState},
		{"closed is terminal", func(t *testing.T, f *fixture) *models.Report {
			r := f.submit(t)
			if _, err := f.svc.Reports.UpdateStatus(context.Background(), f.admin, r.ID, models.ReportClosed, ""); err != nil {
				t.Fatal(err)
			}
			return r
		}, models.ReportClosed, "reopening", ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			r := tt.setup(t, f)
			before := f.report(t, r.ID)
			updatesBefore, _ := f.st.ListReportUpdates(context.Background(), r.ID)

			_, err := f.svc.Reports.UpdateStatus(context.Background(), f.admin, r.ID, tt.to, tt.note)
			updatesAfter, _ := f.st.ListReportUpdates(context.Background(), r.ID)
			if tt.wantErr != nil {
				wantErr(t, err, tt.wantErr)
				if after := f.report(t, r.ID); after.Status != before.Status {
					t.Errorf("status changed from %s to %s", before.Status, after.Status)
				}
				if len(updatesAfter) != len(updatesBefore) {
					t.Error("rejected transition appended an update")
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
			if after := f.report(t, r.ID); after.Status != tt.to {
				t.Errorf("expected %s, got %s", tt.to, after.Status)
			}
			if len(updatesAfter) != len(updatesBefore)+1 {
				t.Error("expected one new update")
			}
		})
	}
}

func TestListIsScopedToActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1, _, staff1 := f.assigned(t)
	f.assigned(t)
	f.submit(t)

	all, err := f.svc.Reports.List(ctx, f.admin, "", 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("admin list = %d, %v", len(all), err)
	}
	pending, _ := f.svc.Reports.List(ctx, f.admin, models.ReportPending, 0)
	if len(pending) != 1 {
		t.Errorf("expected 1 pending report, got %d", len(pending))
	}

	mine, err := f.svc.Reports.List(ctx, staff1, "", 0)
	if err != nil || len(mine) != 1 || mine[0].ID != r1.ID {
		t.Errorf("provider list = %+v, %v", mine, err)
	}

	if _, err := f.svc.Reports.Detail(ctx, staff1, r1.ID); err != nil {
		t.Errorf("owner detail: %v", err)
	}
	for _, r := range all {
		if r.ID == r1.ID {
			continue
		}
		if _, err := f.svc.Reports.Detail(ctx, staff1, r.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("report %d: expected ErrForbidden, got %v", r.ID, err)
		}
	}
}
