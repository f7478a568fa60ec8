package handler

import (
	"fmt"
	"reflect"

	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation"
)

// dns1035 validates names the way Kubernetes validates service names, which database cluster
// names become.
func dns1035(fl validator.FieldLevel) bool {
	return len(validation.IsDNS1035Label(fl.Field().String())) == 0
}

// clusterSize rejects 2 nodes for quorum based engines since a single failure loses the majority.
// The engine is read from the DatabaseEngine sibling field.
func clusterSize(fl validator.FieldLevel) bool {
	nodes := fl.Field().Int()
	engine, ok := siblingEngine(fl)
	if !ok {
		return nodes != 2
	}
	return nodes != 2 || !engine.QuorumBased()
}

// engineConfig validates engine configuration text. mongodb configuration is YAML, mysql
// configuration is an ini style my.cnf which is passed through as is.
func engineConfig(fl validator.FieldLevel) bool {
	text := fl.Field().String()
	if text == "" {
		return true
	}

	if engine, ok := siblingEngine(fl); !ok || engine != model.MongoDB {
		return true
	}

	var config map[string]any
	return yaml.Unmarshal([]byte(text), &config) == nil
}

func siblingEngine(fl validator.FieldLevel) (model.Engine, bool) {
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return "", false
	}
	field := parent.FieldByName("DatabaseEngine")
	if !field.IsValid() || field.Kind() != reflect.String {
		return "", false
	}
	return model.Engine(field.String()), true
}

// RegisterValidation Inspiration: https://blog.logrocket.com/gin-binding-in-go-a-tutorial-with-examples/
func RegisterValidation() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("error getting validation engine")
	}

	validations := map[string]validator.Func{
		"dns1035":      dns1035,
		"clustersize":  clusterSize,
		"engineconfig": engineConfig,
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register validation %q: %v", tag, err)
		}
	}
	return nil
}
