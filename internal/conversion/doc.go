// Package conversion routes action results between data formats.
//
// A Registry holds converters, each declaring the format it consumes, the
// format it produces and a Quality. Converters form a directed graph: an
// edge joins A to B when A's output format is B's input format. Converting
// from one format to another resolves the cheapest chain of converters
// through that graph, caches it per (from, to) pair, and applies every step
// in order to a mutable Result.
//
// Edge weight is taken from the destination converter's quality (Good=1,
// Bad=2), so a chain through Good converters is preferred over an equally
// long chain containing a Bad one. Ties are broken by registration order.
//
//	reg := conversion.NewRegistry()
//	reg.AddConverter(conversion.New("json", "csv", conversion.Good, jsonToCSV))
//	reg.AddConverter(conversion.New("csv", "pdf", conversion.Good, csvToPDF))
//
//	res := &conversion.Result{Data: payload, Format: "json"}
//	if err := reg.Convert(ctx, "json", "pdf", res); err != nil {
//	    if errors.Is(err, conversion.ErrNoConversionPath) {
//	        // a converter registration is missing
//	    }
//	}
//
// Cached chains are tied to the registry's topology generation: adding or
// removing a converter invalidates every chain resolved before it.
package conversion
