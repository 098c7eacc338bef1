package options

import (
	"strconv"

	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"serialserver/pkg/protocol/modbusrtu/model"
	"serialserver/pkg/runtime/constant"
)

// Validate checks o and installs the logger. Logging is applied first so the
// rest of startup logs in the configured format.
func Validate(o *Options) []error {
	var errs []error
	if err := o.BaseOptions.ValidateAndApply(); err != nil {
		errs = append(errs, err)
	}
	for _, err := range validateOptions(o) {
		errs = append(errs, err)
	}
	return errs
}

func validateOptions(o *Options) field.ErrorList {
	var allErrs field.ErrorList
	port, err := strconv.Atoi(o.Port)
	if err != nil {
		allErrs = append(allErrs, field.Invalid(field.NewPath("port"), o.Port, "must be a number"))
	} else {
		for _, msg := range validation.IsValidPortNum(port) {
			allErrs = append(allErrs, field.Invalid(field.NewPath("port"), o.Port, msg))
		}
	}
	if o.Wait.Duration < 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("graceful-timeout"), o.Wait.Duration.String(), "must not be negative"))
	}
	if (len(o.CertFile) == 0) != (len(o.KeyFile) == 0) {
		allErrs = append(allErrs, field.Required(field.NewPath("tls-private-key-file"), "tls-cert-file and tls-private-key-file go together"))
	}
	return append(allErrs, validateSerial(&o.Serial, field.NewPath("serial"))...)
}

func validateSerial(s *SerialOptions, fldPath *field.Path) field.ErrorList {
	var allErrs field.ErrorList
	if !model.ValidBaudRate(s.BaudRate) {
		supported := make([]string, 0, len(model.SupportedBaudRates))
		for _, b := range model.SupportedBaudRates {
			supported = append(supported, strconv.Itoa(b))
		}
		allErrs = append(allErrs, field.NotSupported(fldPath.Child("baud-rate"), s.BaudRate, supported))
	}
	if s.DataBits < 5 || s.DataBits > 8 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("data-bits"), s.DataBits, "must be between 5 and 8"))
	}
	if _, ok := constant.StringToStopBits[s.StopBits]; !ok {
		allErrs = append(allErrs, field.NotSupported(fldPath.Child("stop-bits"), s.StopBits, []string{"1", "1.5", "2"}))
	}
	if _, ok := constant.StringToParity[s.Parity]; !ok {
		allErrs = append(allErrs, field.NotSupported(fldPath.Child("parity"), s.Parity,
			[]string{"noParity", "oddParity", "evenParity", "markParity", "spaceParity"}))
	}
	if s.Timeout.Duration <= 0 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("timeout"), s.Timeout.Duration.String(), "must be positive"))
	}
	if s.Retries < 1 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("retries"), s.Retries, "must be at least 1"))
	}
	return allErrs
}
