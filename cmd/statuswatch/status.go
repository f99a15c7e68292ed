package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/statuswatch/internal/endpoint"
)

type statusStore interface {
	ListAll(ctx context.Context) ([]endpoint.Endpoint, error)
	ListByOwner(ctx context.Context, ownerID string) ([]endpoint.Endpoint, error)
}

func executeStatus(cmd *cobra.Command, db statusStore, owner string) error {
	out := cmd.OutOrStdout()

	var (
		endpoints []endpoint.Endpoint
		err       error
	)
	if owner != "" {
		endpoints, err = db.ListByOwner(context.Background(), owner)
	} else {
		endpoints, err = db.ListAll(context.Background())
	}
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}

	if len(endpoints) == 0 {
		fmt.Fprintln(out, "No endpoints registered. Create one through the API first.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OWNER\tTENANT\tNAME\tURL\tSTATUS\tCODE\tRESPONSE\tLAST CHECKED\tERROR")
	for _, e := range endpoints {
		code := "-"
		if e.StatusCode != nil {
			code = strconv.Itoa(*e.StatusCode)
		}
		resp := "-"
		if e.ResponseTimeMs != nil {
			resp = (time.Duration(*e.ResponseTimeMs) * time.Millisecond).String()
		}
		checked := "never"
		if e.LastCheckedAt != nil {
			checked = e.LastCheckedAt.Local().Format("2006-01-02 15:04:05")
		}
		errMsg := ""
		if e.ErrorMessage != nil {
			errMsg = *e.ErrorMessage
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.OwnerID,
			e.TenantID,
			e.Name,
			e.URL,
			e.Status,
			code,
			resp,
			checked,
			errMsg,
		)
	}
	w.Flush()
	return nil
}
