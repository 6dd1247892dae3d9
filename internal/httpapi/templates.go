package httpapi

import _ "embed"

//go:embed templates/dashboard.tmpl
var dashboardTemplateHTML string

//go:embed templates/login.tmpl
var loginTemplateHTML string

//go:embed templates/signup.tmpl
var signupTemplateHTML string
