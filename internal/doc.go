// Package internal documents the Counsel CMS server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware and routing
// - site: public page rendering, SEO files and template reload
// - domain: content models and services (pages, showcase, careers, blog, inquiries, users)
// - storage: repositories backed by Postgres or an in-memory store
// - jobs: background notifications and retention on River
// - seed, patches: content import and one-shot data fixes
// - auth, audit, config, metrics, telemetry, sanitize, validation: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
