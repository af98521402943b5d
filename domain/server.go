package domain

// DefaultSSHPort is used when a server record has no port.
const DefaultSSHPort = 22

// Server is an SSH endpoint referenced by projects.
type Server struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name,omitempty"`
	Host         string `json:"host,omitempty"`
	User         string `json:"user,omitempty"`
	Port         int    `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	IdentityFile string `json:"identity_file,omitempty"`
}

func (s *Server) EntityID() string       { return s.ID }
func (s *Server) SetEntityID(id string)  { s.ID = id }
func (s *Server) EntityName() string     { return s.Name }
func (s *Server) EntityType() EntityType { return EntityServer }

// EffectivePort returns the configured port or 22.
func (s *Server) EffectivePort() int {
	if s.Port == 0 {
		return DefaultSSHPort
	}
	return s.Port
}

// RemoteTarget is the subset of a server needed to open a connection.
// Its tags are checked before any remote operation.
type RemoteTarget struct {
	Host string `validate:"required,hostname_rfc1123|ip"`
	User string `validate:"required"`
	Port int    `validate:"min=1,max=65535"`
}

// Target projects the server onto its connection parameters.
func (s *Server) Target() RemoteTarget {
	return RemoteTarget{Host: s.Host, User: s.User, Port: s.EffectivePort()}
}
