package sdmx

import (
	"sdmx-explorer/internal/catalog"
	"sdmx-explorer/internal/domain"
)

// Resolve builds one DataflowQuery per chosen dataflow from the filtered catalog rows.
// A flow without rows yields a *domain.NotFoundError in errs and is skipped.
//
// At Subnational level geography codes and names stay empty, so the query does not
// constrain geography and the service returns every area of the dataflow.
func Resolve(res *domain.SelectionResult, sel domain.Selection, flows []string) (queries []domain.DataflowQuery, errs []error) {
	sel.Normalize()
	countries := make(map[string]bool, len(sel.Countries))
	for _, c := range sel.Countries {
		countries[c] = true
	}
	indicators := make(map[string]bool, len(sel.Indicators))
	for _, i := range sel.Indicators {
		indicators[i] = true
	}

	for _, flow := range flows {
		rows := catalog.FilterDataflow(res.Rows, flow)
		if len(rows) == 0 {
			errs = append(errs, domain.ErrNotFound("no mapping data found for dataflow: %s", flow))
			continue
		}

		first := rows[0]
		q := domain.DataflowQuery{
			DataflowName: flow,
			Agency:       first.Agency,
			DataflowID:   first.DataflowID,
		}

		if sel.Level.IsNational() {
			var ids, names []string
			for _, r := range rows {
				if countries[r.Country] {
					ids = append(ids, r.GeographyID)
					names = append(names, r.Geography)
				}
			}
			q.GeographyIDs = domain.UniqueStrings(ids)
			q.GeographyNames = domain.UniqueStrings(names)
		}

		var ids []string
		for _, r := range rows {
			if indicators[r.Indicator] {
				ids = append(ids, r.IndicatorID)
			}
		}
		q.IndicatorIDs = domain.UniqueStrings(ids)

		queries = append(queries, q)
	}
	return queries, errs
}
