package cli

import (
	"context"
	"errors"
	"text/tabwriter"

	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/complaints"
	"github.com/dmitrijs2005/rashdrive/internal/review"
	"github.com/dustin/go-humanize"
)

// List prints the caller's complaints, newest first.
func (a *App) List(ctx context.Context) error {
	a.refresh(ctx)
	list, err := a.review.Mine(ctx, a.mirror.Snapshot())
	if errors.Is(err, common.ErrAuthRequired) {
		a.println("Authentication required: please log in to see your complaints.")
		return err
	}
	if err != nil {
		a.println("Failed to load complaints:", err)
		return err
	}
	if len(list) == 0 {
		a.println("You have not submitted any complaints yet.")
		return nil
	}
	a.printTable(list)
	return nil
}

// Show prints one complaint with a temporary media link.
func (a *App) Show(ctx context.Context, id string) error {
	a.refresh(ctx)
	d, err := a.review.Detail(ctx, a.mirror.Snapshot(), id)
	switch {
	case errors.Is(err, common.ErrAuthRequired):
		a.println("Authentication required: please log in first.")
		return err
	case errors.Is(err, common.ErrorNotFound):
		a.println("Complaint not found.")
		return err
	case err != nil:
		a.println("Failed to load complaint:", err)
		return err
	}

	a.printf("Complaint %s\n", d.ID)
	a.printf("  Vehicle:   %s\n", d.VehicleNumber)
	a.printf("  Location:  %s\n", d.Location)
	a.printf("  Status:    %s\n", d.Status)
	if d.IncidentDate != nil {
		a.printf("  Date:      %s\n", d.IncidentDate.Format("02 Jan 2006"))
	}
	a.printf("  Submitted: %s\n", humanize.Time(d.CreatedAt))
	if d.UpdatedAt != nil {
		a.printf("  Updated:   %s\n", humanize.Time(*d.UpdatedAt))
	}
	if d.Description != "" {
		a.printf("  Details:   %s\n", d.Description)
	}
	switch {
	case d.MediaLink != "":
		a.printf("  Media:     %s\n", d.MediaLink)
	case d.HasMedia():
		a.println("  Media:     not available right now")
	}
	return nil
}

// Pending prints the complaints awaiting review. Police only.
func (a *App) Pending(ctx context.Context) error {
	a.refresh(ctx)
	list, err := a.review.Pending(ctx, a.mirror.Snapshot())
	if review.IsDenied(err) {
		a.println("Access Denied: You don't have permission to access this page")
		return err
	}
	if err != nil {
		a.println("Failed to load complaints:", err)
		return err
	}
	if len(list) == 0 {
		a.println("No pending complaints.")
		return nil
	}
	a.printTable(list)
	return nil
}

// Resolve marks a pending complaint resolved. Police only.
func (a *App) Resolve(ctx context.Context, id string) error {
	a.refresh(ctx)
	err := a.review.UpdateStatus(ctx, a.mirror.Snapshot(), id, complaints.StatusResolved)
	switch {
	case review.IsDenied(err):
		a.println("Access Denied: You don't have permission to access this page")
	case err != nil:
		a.println("Failed to update complaint status")
	default:
		a.println("Complaint status updated successfully")
	}
	return err
}

func (a *App) printTable(list []*complaints.Complaint) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	_, _ = tw.Write([]byte("ID\tVEHICLE\tLOCATION\tSTATUS\tSUBMITTED\n"))
	for _, c := range list {
		_, _ = tw.Write([]byte(c.ID + "\t" + c.VehicleNumber + "\t" + c.Location + "\t" +
			string(c.Status) + "\t" + humanize.Time(c.CreatedAt) + "\n"))
	}
	_ = tw.Flush()
}
