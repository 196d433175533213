package response

import (
	"golang.org/x/text/language"

	"genai-gateway/gateway/outcome"
)

// catalog: mensagens públicas por idioma. Nada de detalhe interno aqui.
var catalog = map[language.Tag]map[outcome.Code]string{
	language.BrazilianPortuguese: {
		outcome.RateLimited:         "Muitas requisições. Tente novamente em um minuto.",
		outcome.MethodNotAllowed:    "Método não permitido.",
		outcome.InvalidRequest:      "Requisição inválida.",
		outcome.MisconfiguredServer: "Erro de configuração do servidor.",
		outcome.UpstreamRateLimited: "O serviço de IA está sobrecarregado. Tente novamente mais tarde.",
		outcome.UpstreamError:       "Falha ao chamar o serviço de IA.",
		outcome.UnexpectedFailure:   "Erro interno do servidor.",
		outcome.Overloaded:          "Servidor ocupado. Tente novamente em instantes.",
	},
	language.English: {
		outcome.RateLimited:         "Too many requests. Please try again in a minute.",
		outcome.MethodNotAllowed:    "Method not allowed.",
		outcome.InvalidRequest:      "Invalid request.",
		outcome.MisconfiguredServer: "Server configuration error.",
		outcome.UpstreamRateLimited: "The AI service is overloaded. Please try again later.",
		outcome.UpstreamError:       "Failed to call the AI service.",
		outcome.UnexpectedFailure:   "Internal server error.",
		outcome.Overloaded:          "Server busy. Please try again shortly.",
	},
	language.Spanish: {
		outcome.RateLimited:         "Demasiadas solicitudes. Inténtalo de nuevo en un minuto.",
		outcome.MethodNotAllowed:    "Método no permitido.",
		outcome.InvalidRequest:      "Solicitud inválida.",
		outcome.MisconfiguredServer: "Error de configuración del servidor.",
		outcome.UpstreamRateLimited: "El servicio de IA está saturado. Inténtalo más tarde.",
		outcome.UpstreamError:       "Error al llamar al servicio de IA.",
		outcome.UnexpectedFailure:   "Error interno del servidor.",
		outcome.Overloaded:          "Servidor ocupado. Inténtalo de nuevo en breve.",
	},
}

// Supported lista os idiomas com catálogo, na forma BCP 47.
func Supported() []string {
	return []string{
		language.BrazilianPortuguese.String(),
		language.English.String(),
		language.Spanish.String(),
	}
}
