package session

import (
	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/ie"
)

// RegisterIEFunction adds or replaces an IE function. Its name may not
// be a declared relation.
func (s *Session) RegisterIEFunction(fn ie.Function) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.symbols.lookup(fn.Name); ok {
		return datalog.Errorf(datalog.SchemaError, fn.Name, "name is taken by a relation")
	}
	if err := s.functions.Register(fn); err != nil {
		return err
	}
	s.logger.Debug("registered IE function", zap.String("function", fn.Name))
	return nil
}

// RemoveIEFunction unregisters a function. Rules that use it fail when evaluated.
func (s *Session) RemoveIEFunction(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.functions.Remove(name) {
		return datalog.Errorf(datalog.SchemaError, name, "IE function is not registered")
	}
	return nil
}

// RemoveAllIEFunctions unregisters every function, built-ins included
func (s *Session) RemoveAllIEFunctions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functions.RemoveAll()
}

// IEFunctions lists the registered functions, sorted by name
func (s *Session) IEFunctions() []ie.Function {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.functions.Functions()
}
