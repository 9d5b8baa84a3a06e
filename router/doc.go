// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the HTTP route table using Go 1.22+ method routing.

NewRouter takes a Deps struct with the wired components and returns a
*http.ServeMux with all routes registered and wrapped in request logging.
*/
package router
