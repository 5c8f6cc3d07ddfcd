package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
)

var (
	weekdaysPT = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}
	monthsPT   = [...]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"}
)

// NormalizePhone keeps only digits and prefixes Brazil's country code when it is missing.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || strings.HasPrefix(digits, "55") {
		return digits
	}
	return "55" + digits
}

// longDate renders "terça-feira, 10 de março".
func longDate(d time.Time) string {
	return fmt.Sprintf("%s, %02d de %s", weekdaysPT[d.Weekday()], d.Day(), monthsPT[d.Month()-1])
}

func shortDate(d time.Time) string {
	return d.Format("02/01/2006")
}

// formatBRL renders cents as "R$ 30,00".
func formatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %d,%02d", sign, cents/100, cents%100)
}

func methodLabel(m reservation.PaymentMethod) string {
	if m == reservation.MethodCard {
		return "Cartão"
	}
	return "PIX"
}

func bookingReceivedText(studio string, r *reservation.Reservation) string {
	return fmt.Sprintf(`✨ *%s* ✨

Olá, *%s*! Seu agendamento foi recebido com sucesso! 🎉

📋 *Detalhes do agendamento:*
💅 Serviço: %s
👩‍🦰 Profissional: %s
📅 Data: %s
🕐 Horário: %s

💳 *Status:* Aguardando confirmação do pagamento

Assim que confirmarmos o pagamento da taxa de agendamento (%s), você receberá uma nova mensagem. 😊

Qualquer dúvida, estamos por aqui!
_%s_ 🌸`,
		studio, r.ClientName, r.Service, r.ProfessionalName, longDate(r.Date), r.Start, formatBRL(r.FeeCents), studio)
}

func newBookingAdminText(studio string, r *reservation.Reservation) string {
	return fmt.Sprintf(`🔔 *Novo Agendamento – %s*

👤 Cliente: %s
📱 Telefone: %s
💅 Serviço: %s
👩‍🦰 Profissional: %s
📅 Data: %s às %s
💳 Pagamento: %s
💰 Taxa: %s

_Acesse o painel para confirmar._`,
		studio, r.ClientName, r.ClientContact, r.Service, r.ProfessionalName,
		shortDate(r.Date), r.Start, methodLabel(r.PaymentMethod), formatBRL(r.FeeCents))
}

func newBookingProfessionalText(studio string, r *reservation.Reservation) string {
	return fmt.Sprintf(`📅 *Novo horário na sua agenda – %s*

Olá, *%s*! Você recebeu um agendamento:

👤 Cliente: %s
💅 Serviço: %s (%d min)
📅 %s às %s

_Aguardando pagamento da taxa._`,
		studio, r.ProfessionalName, r.ClientName, r.Service, r.DurationMinutes, shortDate(r.Date), r.Start)
}

func paymentConfirmedText(studio string, r *reservation.Reservation) string {
	return fmt.Sprintf(`✅ *Pagamento Confirmado!*

Olá, *%s*! Seu agendamento está *confirmado*! 🎊

📋 *Resumo:*
💅 %s
👩‍🦰 %s
📅 %s às %s

📍 *%s*
🕐 Chegue com 5 minutinhos de antecedência

Te esperamos! 💖
_%s_`,
		r.ClientName, r.Service, r.ProfessionalName, longDate(r.Date), r.Start, studio, studio)
}

func cancelledText(studio string, r *reservation.Reservation) string {
	reason := ""
	if r.CancelReason != "" {
		reason = "\n📝 Motivo: " + r.CancelReason
	}
	return fmt.Sprintf(`❌ *Agendamento Cancelado*

Olá, *%s*,

Infelizmente seu agendamento foi cancelado:
💅 %s em %s às %s%s

Entre em contato para reagendar. 💙
_%s_`,
		r.ClientName, r.Service, r.Date.Format("02/01"), r.Start, reason, studio)
}

func reminderText(studio string, r *reservation.Reservation) string {
	return fmt.Sprintf(`⏰ *Lembrete – %s*

Olá, *%s*! Passando para lembrar que você tem horário *amanhã*! 😊

💅 %s
👩‍🦰 %s
🕐 %s

Nos vemos amanhã! 🌸
_%s_`,
		studio, r.ClientName, r.Service, r.ProfessionalName, r.Start, studio)
}
