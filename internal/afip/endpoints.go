package afip

// Environment selects between AFIP's production and homologation (sandbox)
// servers.
type Environment int

const (
	Production Environment = iota
	Sandbox
)

func (e Environment) String() string {
	if e == Sandbox {
		return "sandbox"
	}
	return "production"
}

// EnvironmentFor maps a taxpayer's sandbox flag to an Environment.
func EnvironmentFor(sandboxed bool) Environment {
	if sandboxed {
		return Sandbox
	}
	return Production
}

// Known AFIP webservices.
const (
	ServiceWSAA = "wsaa"
	ServiceWSFE = "wsfe"
)

// wsfeNamespace is the document namespace of every WSFEv1 operation; it also
// prefixes their SOAPAction values.
const wsfeNamespace = "http://ar.gov.afip.dif.FEV1/"

var endpoints = map[string]map[Environment]string{
	ServiceWSAA: {
		Production: "https://wsaa.afip.gov.ar/ws/services/LoginCms",
		Sandbox:    "https://wsaahomo.afip.gov.ar/ws/services/LoginCms",
	},
	ServiceWSFE: {
		Production: "https://servicios1.afip.gov.ar/wsfev1/service.asmx",
		Sandbox:    "https://wswhomo.afip.gov.ar/wsfev1/service.asmx",
	},
}

// Endpoint returns the URL for a service in an environment; empty when the
// service is unknown.
func Endpoint(service string, env Environment) string {
	return endpoints[service][env]
}
