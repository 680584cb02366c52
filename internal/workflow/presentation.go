package workflow

// Presentation carries the texts of the action form.
type Presentation struct {
	Title          string
	Description    string
	Button         string
	Placeholder    string
	DefaultMessage string
}

var presentations = map[Action]Presentation{
	ActionConfirm: {
		Title:          "Confirmer la commande",
		Description:    "Confirmez cette commande et envoyez un message au patient",
		Button:         "Confirmer la commande",
		Placeholder:    "Message de confirmation (optionnel)...",
		DefaultMessage: "Votre commande a été confirmée et est en cours de préparation.",
	},
	ActionRefuse: {
		Title:          "Refuser la commande",
		Description:    "Refusez cette commande et expliquez la raison au patient",
		Button:         "Refuser la commande",
		Placeholder:    "Raison du refus (obligatoire)...",
		DefaultMessage: "Nous ne pouvons pas traiter votre commande pour le moment.",
	},
	ActionPrepare: {
		Title:          "Marquer comme préparée",
		Description:    "Marquez cette commande comme préparée",
		Button:         "Marquer préparée",
		Placeholder:    "Message pour le patient (optionnel)...",
		DefaultMessage: "Votre commande est maintenant préparée.",
	},
	ActionReady: {
		Title:          "Marquer comme prête",
		Description:    "Marquez cette commande comme prête à récupérer",
		Button:         "Marquer prête",
		Placeholder:    "Message pour le patient (optionnel)...",
		DefaultMessage: "Votre commande est prête ! Vous pouvez venir la récupérer.",
	},
	ActionPickUp: {
		Title:          "Marquer comme récupérée",
		Description:    "Confirmez que cette commande a été récupérée par le patient",
		Button:         "Marquer récupérée",
		Placeholder:    "Message de remerciement (optionnel)...",
		DefaultMessage: "Merci pour votre confiance ! Votre commande a été récupérée avec succès.",
	},
	ActionCancel: {
		Title:          "Annuler la commande",
		Description:    "Annulez cette commande et prévenez le patient",
		Button:         "Annuler la commande",
		Placeholder:    "Raison de l'annulation (optionnel)...",
		DefaultMessage: "Votre commande a été annulée. N'hésitez pas à nous contacter.",
	},
}

// PresentationFor returns the form texts for action. Unknown actions get
// an empty Presentation.
func PresentationFor(action Action) Presentation {
	return presentations[action]
}
