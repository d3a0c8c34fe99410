// Package harvest drives a full ACS download: it enumerates the state scopes,
// issues one query per catalog batch for every scope and folds the batch
// responses into labelled records.
//
// Scopes are harvested sequentially by default. Config.Concurrency allows
// several scopes in flight and Config.ParallelBatches issues a scope's batch
// queries at the same time; in every mode the returned records are ordered by
// scope, then by row. The first error cancels the remaining work.
//
// Example usage:
//
//	h, err := harvest.New(acsClient, catalog.Default(), harvest.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	records, err := h.Run(ctx)
package harvest
