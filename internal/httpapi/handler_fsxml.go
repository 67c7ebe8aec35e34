package httpapi

import (
	"bytes"
	"encoding/xml"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"voip-routing/internal/config"
	"voip-routing/internal/fsxml"
	"voip-routing/internal/metrics"
	"voip-routing/internal/routing"
)

const sectionResult = "result"

// FSXMLHandler answers mod_xml_curl fetches. A non-empty section pins the
// endpoint to that section regardless of the request fields.
//
// The switch treats any non-200 or non-XML answer as a failed call leg, so
// every path through the handler, panics included, ends in a 200 with a
// well-formed document.
func FSXMLHandler(cfg *config.Config, resolver Resolver, section string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic while answering xml fetch",
					"request_id", middleware.GetReqID(r.Context()),
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				metrics.FSXMLRequests.WithLabelValues(sectionResult).Inc()
				writeDocument(w, fsxml.NotFound(), logger)
			}
		}()

		req, err := fsxml.ParseRequest(r)
		if err != nil {
			logger.Warn("malformed xml fetch request, using readable fields", "err", err)
			req = fsxml.RequestFromValues(r.Form)
		}
		if section != "" {
			req.Section = section
		}

		doc, served := answer(r, cfg, resolver, req)

		metrics.FSXMLRequests.WithLabelValues(served).Inc()
		logger.Debug("xml fetch answered",
			"request_id", middleware.GetReqID(r.Context()),
			"section", req.Section,
			"served", served,
			"context", req.Context,
			"destination", req.Destination,
			"domain", req.Domain,
			"user", req.User,
		)
		writeDocument(w, doc, logger)
	}
}

func answer(r *http.Request, cfg *config.Config, resolver Resolver, req routing.Request) (*fsxml.Document, string) {
	switch req.Section {
	case routing.SectionDirectory:
		// Synthetic credentials exist for unknown users, not for a lookup
		// that names nobody; the switch treats not-found as "no such user".
		if req.User == "" {
			return fsxml.NotFound(), sectionResult
		}
		return fsxml.BuildDirectory(resolver.ResolveDirectory(r.Context(), req)), routing.SectionDirectory
	case routing.SectionDialplan:
	default:
		if cfg.Routing.UnsupportedSection == config.UnsupportedSectionEmpty {
			return fsxml.NotFound(), sectionResult
		}
	}
	return fsxml.BuildDialplan(resolver.ResolveDialplan(r.Context(), req)), routing.SectionDialplan
}

func writeDocument(w http.ResponseWriter, doc *fsxml.Document, logger *slog.Logger) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		logger.Error("encode xml document", "err", err, "doc", doc.DebugString())
		buf.Reset()
		enc = xml.NewEncoder(&buf)
		enc.Indent("", "  ")
		_ = enc.Encode(fsxml.NotFound())
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
